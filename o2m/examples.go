package o2m

import (
	"fmt"

	"github.com/scigolib/datatree"
)

// Index table modes accepted by Uniform.
const (
	IndexNone     = "unspecified" // no indices child
	IndexDefault  = "default"     // identity indirection
	IndexReversed = "reversed"    // back-to-front indirection
)

// Uniform fills n with a synthetic relation of ones groups, many elements
// per group, and offset slots between group starts. Data values run 1, 2, 3,
// ... in visit order; unvisited slots are padded with -1. With many == 0 the
// relation degenerates to one element per group and carries no sizes or
// offsets children. An offset smaller than many is widened to many. The
// mode selects the indices child: IndexNone omits it, IndexDefault installs
// the identity table, IndexReversed the back-to-front table.
func Uniform(n *datatree.Node, ones, many, offset int, mode string) error {
	if ones < 1 {
		return fmt.Errorf("%w: need at least one group, got %d", datatree.ErrInvalidRelation, ones)
	}
	if many < 0 || offset < 0 {
		return fmt.Errorf("%w: negative extent (many=%d, offset=%d)", datatree.ErrInvalidRelation, many, offset)
	}
	switch mode {
	case "", IndexNone, IndexDefault, IndexReversed:
	default:
		return fmt.Errorf("%w: unknown index mode %q", datatree.ErrInvalidRelation, mode)
	}

	withSizes := many > 0
	effMany := many
	if effMany == 0 {
		effMany = 1
	}
	effOffset := offset
	if effOffset < effMany {
		effOffset = effMany
	}
	dataLen := ones * effOffset

	var indices []int32
	switch mode {
	case IndexDefault:
		indices = make([]int32, dataLen)
		for i := range indices {
			indices[i] = int32(i)
		}
	case IndexReversed:
		indices = make([]int32, dataLen)
		for i := range indices {
			indices[i] = int32(dataLen - 1 - i)
		}
	}

	data := make([]float32, dataLen)
	for i := range data {
		data[i] = -1
	}

	value := float32(1)
	for one := 0; one < ones; one++ {
		for m := 0; m < effMany; m++ {
			pos := int32(one*effOffset + m)
			if indices != nil {
				pos = indices[pos]
			}
			data[pos] = value
			value++
		}
	}

	n.Reset()
	dataNode, err := n.Fetch("data")
	if err != nil {
		return err
	}
	if err := dataNode.SetFloat32Slice(data); err != nil {
		return err
	}

	if withSizes {
		sizes := make([]int32, ones)
		offsets := make([]int32, ones)
		for one := 0; one < ones; one++ {
			sizes[one] = int32(effMany)
			offsets[one] = int32(one * effOffset)
		}
		sizesNode, err := n.Fetch(ChildSizes)
		if err != nil {
			return err
		}
		if err := sizesNode.SetInt32Slice(sizes); err != nil {
			return err
		}
		offsetsNode, err := n.Fetch(ChildOffsets)
		if err != nil {
			return err
		}
		if err := offsetsNode.SetInt32Slice(offsets); err != nil {
			return err
		}
	}

	if indices != nil {
		indicesNode, err := n.Fetch(ChildIndices)
		if err != nil {
			return err
		}
		if err := indicesNode.SetInt32Slice(indices); err != nil {
			return err
		}
	}
	return nil
}
