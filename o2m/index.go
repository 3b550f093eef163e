package o2m

import (
	"fmt"

	"github.com/scigolib/datatree"
)

// Index provides read-only random access over a relation. The four arrays
// are decoded once at construction, so every accessor is O(1); absent
// offsets are materialized as the prefix sum of sizes.
type Index struct {
	ones    int
	sizes   []int64 // nil when absent: every group has one element
	offsets []int64 // never nil: defaulted to the prefix sum
	indices []int64 // nil when absent: offsets address the data directly
}

// NewIndex builds an index over the relation n. The relation must pass
// Verify-level structural checks; otherwise ErrInvalidRelation is returned.
func NewIndex(n *datatree.Node) (*Index, error) {
	if n == nil || !n.IsObject() {
		return nil, fmt.Errorf("%w: not an object node", datatree.ErrInvalidRelation)
	}
	if !Verify(n, nil) {
		return nil, fmt.Errorf("%w: relation fails verification", datatree.ErrInvalidRelation)
	}

	dataPaths := DataPaths(n)
	if len(dataPaths) == 0 {
		return nil, fmt.Errorf("%w: no data array child", datatree.ErrInvalidRelation)
	}

	idx := &Index{}
	for _, name := range []string{ChildSizes, ChildOffsets, ChildIndices} {
		child := n.Child(name)
		if child == nil {
			continue
		}
		if !child.IsLeaf() || !child.Dtype().IsInteger() {
			return nil, fmt.Errorf("%w: child %q must be an integer leaf", datatree.ErrInvalidRelation, name)
		}
		values, err := intValues(child)
		if err != nil {
			return nil, fmt.Errorf("%w: child %q unreadable", datatree.ErrInvalidRelation, name)
		}
		switch name {
		case ChildSizes:
			idx.sizes = values
		case ChildOffsets:
			idx.offsets = values
		case ChildIndices:
			idx.indices = values
		}
	}

	switch {
	case idx.sizes != nil:
		idx.ones = len(idx.sizes)
	case idx.indices != nil:
		idx.ones = len(idx.indices)
	default:
		idx.ones = n.Child(dataPaths[0]).Dtype().NumberOfElements()
	}

	if idx.offsets == nil {
		idx.offsets = make([]int64, idx.ones)
		running := int64(0)
		for i := 0; i < idx.ones; i++ {
			idx.offsets[i] = running
			running += idx.groupSize(i)
		}
	} else if idx.sizes != nil && len(idx.offsets) != len(idx.sizes) {
		return nil, fmt.Errorf("%w: offsets count %d != sizes count %d",
			datatree.ErrInvalidRelation, len(idx.offsets), len(idx.sizes))
	}

	return idx, nil
}

// groupSize is the unchecked per-one group length.
func (idx *Index) groupSize(one int) int64 {
	if idx.sizes == nil {
		return 1
	}
	return idx.sizes[one]
}

// Size returns the number of groups on the ONE axis.
func (idx *Index) Size() int {
	return idx.ones
}

// GroupSize returns the number of elements in group one.
func (idx *Index) GroupSize(one int) (int, error) {
	if one < 0 || one >= idx.ones {
		return 0, fmt.Errorf("%w: one=%d of %d", datatree.ErrOutOfRange, one, idx.ones)
	}
	return int(idx.groupSize(one)), nil
}

// Offset returns the start of group one inside the indirection space.
func (idx *Index) Offset(one int) (int, error) {
	if one < 0 || one >= idx.ones {
		return 0, fmt.Errorf("%w: one=%d of %d", datatree.ErrOutOfRange, one, idx.ones)
	}
	return int(idx.offsets[one]), nil
}

// Index resolves the position of element (one, many) inside the data array.
// The many coordinate is checked against the group length, even when the
// raw offsets would still land inside the data array.
func (idx *Index) Index(one, many int) (int, error) {
	if one < 0 || one >= idx.ones {
		return 0, fmt.Errorf("%w: one=%d of %d", datatree.ErrOutOfRange, one, idx.ones)
	}
	if many < 0 || int64(many) >= idx.groupSize(one) {
		return 0, fmt.Errorf("%w: many=%d of group size %d", datatree.ErrOutOfRange, many, idx.groupSize(one))
	}

	pos := idx.offsets[one] + int64(many)
	if idx.indices != nil {
		if pos < 0 || pos >= int64(len(idx.indices)) {
			return 0, fmt.Errorf("%w: indirection %d of %d", datatree.ErrOutOfRange, pos, len(idx.indices))
		}
		return int(idx.indices[pos]), nil
	}
	return int(pos), nil
}
