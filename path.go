package datatree

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PathSeparator splits a path into child-name segments.
const PathSeparator = "."

// normalizeSegment canonicalizes a child name to Unicode NFC so that
// byte-different spellings of the same name address the same child.
func normalizeSegment(name string) string {
	return norm.NFC.String(name)
}

// splitPath splits a dotted path into normalized segments. Empty segments,
// including a leading or trailing separator, are malformed. Numeric-looking
// segments are names, never indices.
func splitPath(path string) ([]string, error) {
	segments := strings.Split(path, PathSeparator)
	for i, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		segments[i] = normalizeSegment(seg)
	}
	return segments, nil
}

// Fetch returns the node at the dotted path, creating empty object nodes for
// every missing segment. A leaf encountered along the walk, including the
// receiver, loses its buffer and becomes an object.
func (n *Node) Fetch(path string) (*Node, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	cur := n
	for _, seg := range segments {
		cur = cur.child(seg)
	}
	return cur, nil
}

// HasPath reports whether a node exists at the dotted path. It never
// mutates the tree; a malformed path simply probes false.
func (n *Node) HasPath(path string) bool {
	segments, err := splitPath(path)
	if err != nil {
		return false
	}

	cur := n
	for _, seg := range segments {
		if cur.shape != shapeObject {
			return false
		}
		var next *Node
		for i := range cur.children {
			if cur.children[i].name == seg {
				next = cur.children[i].node
				break
			}
		}
		if next == nil {
			return false
		}
		cur = next
	}
	return true
}

// Paths returns the names of the immediate children in insertion order.
// With expand, the traversal recurses through object children and returns
// the full dotted path of every non-object descendant instead.
func (n *Node) Paths(expand bool) []string {
	if !expand {
		return n.ChildNames()
	}

	var out []string
	n.appendLeafPaths(&out, "")
	return out
}

func (n *Node) appendLeafPaths(out *[]string, prefix string) {
	for i := range n.children {
		entry := n.children[i]
		path := entry.name
		if prefix != "" {
			path = prefix + PathSeparator + entry.name
		}
		if entry.node.shape == shapeObject {
			entry.node.appendLeafPaths(out, path)
		} else {
			*out = append(*out, path)
		}
	}
}
