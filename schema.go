package datatree

import (
	"fmt"
	"strconv"
	"strings"
)

// Schema returns the textual summary of the subtree. Objects emit a
// brace-delimited mapping of name to child schema preserving insertion
// order; leaves emit their DataType record; empty nodes emit "none".
//
// Grammar (documented here because this module defines it):
//
//	schema  = leaf | object
//	leaf    = kind *("," SP attr)
//	attr    = ("count" | "offset" | "stride" | "element_bytes") "=" int
//	        | "endianness" "=" ("little" | "big")
//	object  = "{" [entry *("," SP entry)] "}"
//	entry   = name ":" SP schema
//
// Attributes at their defaults are omitted on output but accepted on input.
// ParseSchemaTree parses everything Schema emits; ParseSchema parses the leaf
// form only.
func (n *Node) Schema() string {
	switch n.shape {
	case shapeLeaf:
		return n.dtype.String()
	case shapeObject:
		var sb strings.Builder
		sb.WriteString("{")
		for i := range n.children {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(n.children[i].name)
			sb.WriteString(": ")
			sb.WriteString(n.children[i].node.Schema())
		}
		sb.WriteString("}")
		return sb.String()
	default:
		return KindNone.String()
	}
}

// ParseSchema parses the leaf schema form into a DataType.
func ParseSchema(schema string) (DataType, error) {
	schema = strings.TrimSpace(schema)
	if strings.HasPrefix(schema, "{") {
		return EmptyType(), fmt.Errorf("%w: object schema where leaf expected: %q", ErrInvalidSchema, schema)
	}

	parts := strings.Split(schema, ",")
	kindName := strings.TrimSpace(parts[0])
	kind, ok := KindFromName(kindName)
	if !ok {
		return EmptyType(), fmt.Errorf("%w: unknown kind %q", ErrInvalidSchema, kindName)
	}
	if kind == KindNone {
		return EmptyType(), nil
	}

	dt := compactType(kind, 0)
	for _, part := range parts[1:] {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return EmptyType(), fmt.Errorf("%w: attribute %q is not key=value", ErrInvalidSchema, part)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "endianness" {
			switch value {
			case "little":
				dt.Endianness = LittleEndian
			case "big":
				dt.Endianness = BigEndian
			default:
				return EmptyType(), fmt.Errorf("%w: endianness %q", ErrInvalidSchema, value)
			}
			continue
		}

		num, err := strconv.Atoi(value)
		if err != nil || num < 0 {
			return EmptyType(), fmt.Errorf("%w: attribute %s=%q", ErrInvalidSchema, key, value)
		}
		switch key {
		case "count":
			dt.Count = num
		case "offset":
			dt.OffsetBytes = num
		case "stride":
			dt.StrideBytes = num
		case "element_bytes":
			dt.ElementBytes = num
		default:
			return EmptyType(), fmt.Errorf("%w: unknown attribute %q", ErrInvalidSchema, key)
		}
	}
	return dt, nil
}

// ParseSchemaTree parses a full schema (leaf or object form) into a fresh
// node tree. Leaves are installed through SetDataType, so they come back
// zero-filled and owned; bind external data with SetExternalNode.
func ParseSchemaTree(schema string) (*Node, error) {
	n := NewNode()
	if err := buildSchemaNode(n, schema); err != nil {
		return nil, err
	}
	return n, nil
}

func buildSchemaNode(n *Node, schema string) error {
	schema = strings.TrimSpace(schema)
	if !strings.HasPrefix(schema, "{") {
		dt, err := ParseSchema(schema)
		if err != nil {
			return err
		}
		return n.SetDataType(dt)
	}

	if !strings.HasSuffix(schema, "}") {
		return fmt.Errorf("%w: unterminated object %q", ErrInvalidSchema, schema)
	}

	entries, err := splitObjectBody(schema[1 : len(schema)-1])
	if err != nil {
		return err
	}

	// An object with no entries is still an object; force the transition.
	n.cleanup()
	n.shape = shapeObject

	for _, item := range entries {
		name, sub, found := strings.Cut(item, ":")
		if !found {
			return fmt.Errorf("%w: entry %q has no name", ErrInvalidSchema, item)
		}
		name = strings.TrimSpace(name)
		if name == "" || strings.Contains(name, PathSeparator) {
			return fmt.Errorf("%w: bad child name %q", ErrInvalidSchema, name)
		}
		child := n.child(normalizeSegment(name))
		if err := buildSchemaNode(child, sub); err != nil {
			return err
		}
	}
	return nil
}

// splitObjectBody splits an object body on top-level commas. A fragment
// holding '=' but no top-level ':' is a leaf attribute continuation and is
// folded back into the preceding entry.
func splitObjectBody(body string) ([]string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}

	var items []string
	depth := 0
	start := 0
	flush := func(end int) error {
		frag := strings.TrimSpace(body[start:end])
		if topLevelColon(frag) {
			items = append(items, frag)
			return nil
		}
		if len(items) == 0 || !strings.Contains(frag, "=") {
			return fmt.Errorf("%w: dangling fragment %q", ErrInvalidSchema, frag)
		}
		items[len(items)-1] += ", " + frag
		return nil
	}

	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced braces in %q", ErrInvalidSchema, body)
			}
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced braces in %q", ErrInvalidSchema, body)
	}
	if err := flush(len(body)); err != nil {
		return nil, err
	}
	return items, nil
}

func topLevelColon(frag string) bool {
	depth := 0
	for i := 0; i < len(frag); i++ {
		switch frag[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ':':
			if depth == 0 {
				return true
			}
		case '=':
			if depth == 0 {
				return false
			}
		}
	}
	return false
}
