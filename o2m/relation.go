// Package o2m materializes a one-to-many relation over a small set of
// sibling arrays inside a data tree node. An object node is a relation when
// it carries at least one numeric data array and, optionally, the reserved
// integer children "sizes", "offsets" and "indices" describing how the data
// array groups into one-to-many buckets.
package o2m

import (
	"fmt"

	set3 "github.com/TomTonic/Set3"
	"github.com/scigolib/datatree"
)

// Reserved child names of a relation node.
const (
	ChildSizes   = "sizes"
	ChildOffsets = "offsets"
	ChildIndices = "indices"
)

func reservedNames() *set3.Set3[string] {
	return set3.From(ChildSizes, ChildOffsets, ChildIndices)
}

// DataPaths returns, in insertion order, the names of the immediate children
// that hold numeric data arrays: numeric leaves whose name is not reserved.
// Object children and non-numeric leaves are skipped.
func DataPaths(n *datatree.Node) []string {
	reserved := reservedNames()

	var paths []string
	for _, name := range n.ChildNames() {
		if reserved.Contains(name) {
			continue
		}
		child := n.Child(name)
		if child.IsLeaf() && child.Dtype().IsNumeric() {
			paths = append(paths, name)
		}
	}
	return paths
}

// appendInfoError records a verification failure message on the info sink.
func appendInfoError(info *datatree.Node, msg string) {
	if info == nil {
		return
	}
	errs, err := info.Fetch("errors")
	if err != nil {
		return
	}
	slot := fmt.Sprintf("%d", errs.NumChildren())
	entry, err := errs.Fetch(slot)
	if err != nil {
		return
	}
	_ = entry.SetString(msg)
}

func setInfoValid(info *datatree.Node, valid bool) {
	if info == nil {
		return
	}
	node, err := info.Fetch("valid")
	if err != nil {
		return
	}
	_ = node.SetString(fmt.Sprintf("%t", valid))
}

// intValues decodes an integer leaf into a widened slice, honoring stride.
func intValues(n *datatree.Node) ([]int64, error) {
	count := n.Dtype().NumberOfElements()
	out := make([]int64, count)
	for i := 0; i < count; i++ {
		v, err := n.ElementInt64(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Verify checks that n satisfies the relation convention. Failures are
// reported on the info sink; the return value is the verdict.
func Verify(n, info *datatree.Node) bool {
	if info != nil {
		info.Reset()
	}
	ok := verifyInto(n, info)
	setInfoValid(info, ok)
	return ok
}

func verifyInto(n, info *datatree.Node) bool {
	if n == nil || !n.IsObject() {
		appendInfoError(info, "relation must be an object node")
		return false
	}

	ok := true
	for _, name := range []string{ChildSizes, ChildOffsets, ChildIndices} {
		child := n.Child(name)
		if child == nil {
			continue
		}
		if !child.IsLeaf() || !child.Dtype().IsInteger() {
			appendInfoError(info, fmt.Sprintf("child %q must be an integer leaf", name))
			ok = false
		}
	}
	if !ok {
		return false
	}

	dataPaths := DataPaths(n)
	if len(dataPaths) == 0 {
		appendInfoError(info, "relation has no data array child")
		return false
	}

	// The indirection space is the indices array when present, the data
	// array otherwise. Unaddressed indices entries may hold padding, so
	// their values are not validated here.
	indirect := n.Child(dataPaths[0]).Dtype().NumberOfElements()
	if indicesNode := n.Child(ChildIndices); indicesNode != nil {
		indirect = indicesNode.Dtype().NumberOfElements()
	}

	var sizes, offsets []int64
	if node := n.Child(ChildSizes); node != nil {
		var err error
		if sizes, err = intValues(node); err != nil {
			appendInfoError(info, fmt.Sprintf("sizes unreadable: %v", err))
			return false
		}
		total := int64(0)
		for i, s := range sizes {
			if s < 0 {
				appendInfoError(info, fmt.Sprintf("sizes[%d]=%d is negative", i, s))
				return false
			}
			total += s
		}
		if total > int64(indirect) {
			appendInfoError(info, fmt.Sprintf("sum(sizes)=%d exceeds indirection space %d", total, indirect))
			ok = false
		}
	}

	if node := n.Child(ChildOffsets); node != nil {
		var err error
		if offsets, err = intValues(node); err != nil {
			appendInfoError(info, fmt.Sprintf("offsets unreadable: %v", err))
			return false
		}
		if sizes != nil && len(offsets) != len(sizes) {
			appendInfoError(info, fmt.Sprintf("offsets count %d != sizes count %d", len(offsets), len(sizes)))
			ok = false
		}
		for i, off := range offsets {
			end := off
			if sizes != nil && i < len(sizes) {
				end += sizes[i]
			}
			if off < 0 || end > int64(indirect) || (sizes == nil && off >= int64(indirect)) {
				appendInfoError(info, fmt.Sprintf("offsets[%d]=%d outside indirection space %d", i, off, indirect))
				ok = false
				break
			}
		}
	}

	return ok
}

// GenerateOffsets writes offsets as the running prefix sum of sizes,
// starting at zero, using the same integer kind as sizes. It fails, with
// the reason on the info sink, when n is not a relation carrying sizes.
func GenerateOffsets(n, info *datatree.Node) bool {
	if info != nil {
		info.Reset()
	}

	if n == nil || !n.IsObject() {
		appendInfoError(info, "relation must be an object node")
		setInfoValid(info, false)
		return false
	}

	sizesNode := n.Child(ChildSizes)
	if sizesNode == nil || !sizesNode.IsLeaf() || !sizesNode.Dtype().IsInteger() {
		appendInfoError(info, "relation has no integer sizes child")
		setInfoValid(info, false)
		return false
	}

	if len(DataPaths(n)) == 0 {
		appendInfoError(info, "relation has no data array child")
		setInfoValid(info, false)
		return false
	}

	sizes, err := intValues(sizesNode)
	if err != nil {
		appendInfoError(info, fmt.Sprintf("sizes unreadable: %v", err))
		setInfoValid(info, false)
		return false
	}

	offsets := make([]int64, len(sizes))
	running := int64(0)
	for i, s := range sizes {
		offsets[i] = running
		running += s
	}

	if err := writeIntLeaf(n, ChildOffsets, sizesNode.Dtype().Kind, offsets); err != nil {
		appendInfoError(info, fmt.Sprintf("offsets write failed: %v", err))
		setInfoValid(info, false)
		return false
	}

	setInfoValid(info, true)
	return true
}

// writeIntLeaf installs values under name as a compact integer leaf of the
// given kind.
func writeIntLeaf(n *datatree.Node, name string, kind datatree.Kind, values []int64) error {
	child, err := n.Fetch(name)
	if err != nil {
		return err
	}
	dt := datatree.NewDataType(kind, len(values), 0, kind.Size(), kind.Size(), datatree.LittleEndian)
	if err := child.SetDataType(dt); err != nil {
		return err
	}
	for i, v := range values {
		if err := child.SetElementInt64(i, v); err != nil {
			return err
		}
	}
	return nil
}

// CompactTo writes a dense equivalent of the relation src into dst: each
// data array packed into sum(sizes) elements in visit order, sizes kept,
// offsets rewritten as the prefix sum when src carried offsets, and the
// indirection table dropped since it becomes the identity.
func CompactTo(src, dst *datatree.Node) error {
	idx, err := NewIndex(src)
	if err != nil {
		return err
	}

	total := 0
	for one := 0; one < idx.Size(); one++ {
		size, err := idx.GroupSize(one)
		if err != nil {
			return err
		}
		total += size
	}

	dst.Reset()
	for _, name := range src.ChildNames() {
		child := src.Child(name)

		switch {
		case name == ChildIndices:
			// Identity after packing.

		case name == ChildSizes:
			sizes, err := intValues(child)
			if err != nil {
				return err
			}
			if err := writeIntLeaf(dst, ChildSizes, child.Dtype().Kind, sizes); err != nil {
				return err
			}

		case name == ChildOffsets:
			sizesNode := src.Child(ChildSizes)
			var offsets []int64
			if sizesNode != nil {
				sizes, err := intValues(sizesNode)
				if err != nil {
					return err
				}
				offsets = make([]int64, len(sizes))
				running := int64(0)
				for i, s := range sizes {
					offsets[i] = running
					running += s
				}
			} else {
				offsets = make([]int64, idx.Size())
				for i := range offsets {
					offsets[i] = int64(i)
				}
			}
			if err := writeIntLeaf(dst, ChildOffsets, child.Dtype().Kind, offsets); err != nil {
				return err
			}

		case child.IsLeaf() && child.Dtype().IsNumeric():
			if err := packDataArray(idx, child, dst, name, total); err != nil {
				return err
			}

		default:
			out, err := dst.Fetch(name)
			if err != nil {
				return err
			}
			if err := out.Set(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// packDataArray writes the visit-ordered dense form of one data array.
func packDataArray(idx *Index, src *datatree.Node, dst *datatree.Node, name string, total int) error {
	out, err := dst.Fetch(name)
	if err != nil {
		return err
	}

	kind := src.Dtype().Kind
	dt := datatree.NewDataType(kind, total, 0, kind.Size(), kind.Size(), src.Dtype().Endianness)
	if err := out.SetDataType(dt); err != nil {
		return err
	}

	pos := 0
	for one := 0; one < idx.Size(); one++ {
		size, err := idx.GroupSize(one)
		if err != nil {
			return err
		}
		for many := 0; many < size; many++ {
			di, err := idx.Index(one, many)
			if err != nil {
				return err
			}
			if kind.IsFloat() {
				v, err := src.ElementFloat64(di)
				if err != nil {
					return err
				}
				if err := out.SetElementFloat64(pos, v); err != nil {
					return err
				}
			} else {
				v, err := src.ElementInt64(di)
				if err != nil {
					return err
				}
				if err := out.SetElementInt64(pos, v); err != nil {
					return err
				}
			}
			pos++
		}
	}
	return nil
}
