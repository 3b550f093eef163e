package datatree

import (
	"fmt"
	"math"

	set3 "github.com/TomTonic/Set3"
)

func (s shape) String() string {
	switch s {
	case shapeLeaf:
		return "leaf"
	case shapeObject:
		return "object"
	default:
		return "empty"
	}
}

// Diff compares n against other element-wise and reports true when they
// differ. Objects must carry the same child-name set (order-independent)
// and are compared child by child; leaves must hold the same kind class and
// count and are compared honoring each side's stride. Integer values match
// exactly; float values match within epsilon. Leaves whose integer widths or
// float widths differ only match under relaxInt. The first discrepancy per subtree is
// described on the info sink.
func (n *Node) Diff(other, info *Node, epsilon float64, relaxInt bool) bool {
	if info != nil {
		info.Reset()
	}
	return n.diffInto(other, info, epsilon, relaxInt)
}

func writeDiffInfo(info *Node, msg string) {
	if info != nil {
		_ = info.SetString(msg)
	}
}

func (n *Node) diffInto(other, info *Node, epsilon float64, relaxInt bool) bool {
	if other == nil {
		writeDiffInfo(info, "other node is nil")
		return true
	}

	if n.shape != other.shape {
		writeDiffInfo(info, fmt.Sprintf("shape mismatch: %s vs %s", n.shape, other.shape))
		return true
	}

	switch n.shape {
	case shapeEmpty:
		return false
	case shapeLeaf:
		return n.diffLeaf(other, info, epsilon, relaxInt)
	default:
		return n.diffObject(other, info, epsilon, relaxInt)
	}
}

func (n *Node) diffObject(other, info *Node, epsilon float64, relaxInt bool) bool {
	namesA := n.ChildNames()
	namesB := other.ChildNames()

	setA := set3.From(namesA...)
	setB := set3.From(namesB...)

	different := false
	if !setA.Equals(setB) {
		different = true
		for _, name := range namesA {
			if !setB.Contains(name) {
				writeDiffInfo(childInfo(info, name), "child missing from other node")
			}
		}
		for _, name := range namesB {
			if !setA.Contains(name) {
				writeDiffInfo(childInfo(info, name), "child missing from this node")
			}
		}
	}

	for _, name := range namesA {
		if !setB.Contains(name) {
			continue
		}
		if n.Child(name).diffInto(other.Child(name), childInfo(info, name), epsilon, relaxInt) {
			different = true
		}
	}
	return different
}

func childInfo(info *Node, name string) *Node {
	if info == nil {
		return nil
	}
	child, err := info.Fetch(name)
	if err != nil {
		return nil
	}
	return child
}

func (n *Node) diffLeaf(other, info *Node, epsilon float64, relaxInt bool) bool {
	a := n.dtype
	b := other.dtype

	if a.Count != b.Count {
		writeDiffInfo(info, fmt.Sprintf("element count mismatch: %d vs %d", a.Count, b.Count))
		return true
	}

	switch {
	case a.IsInteger() && b.IsInteger():
		if a.Kind != b.Kind && !relaxInt {
			writeDiffInfo(info, fmt.Sprintf("integer kind mismatch: %s vs %s", a.Kind, b.Kind))
			return true
		}
		for i := 0; i < a.Count; i++ {
			av := a.readInt64(n.buf.Data(), i)
			bv := b.readInt64(other.buf.Data(), i)
			if av != bv {
				writeDiffInfo(info, fmt.Sprintf("element %d differs: %d vs %d", i, av, bv))
				return true
			}
		}
		return false

	case a.IsFloat() && b.IsFloat():
		if a.Kind != b.Kind && !relaxInt {
			writeDiffInfo(info, fmt.Sprintf("float kind mismatch: %s vs %s", a.Kind, b.Kind))
			return true
		}
		for i := 0; i < a.Count; i++ {
			av := a.readFloat64(n.buf.Data(), i)
			bv := b.readFloat64(other.buf.Data(), i)
			if math.Abs(av-bv) > epsilon {
				writeDiffInfo(info, fmt.Sprintf("element %d differs: %g vs %g", i, av, bv))
				return true
			}
		}
		return false

	case a.Kind == KindChar8 && b.Kind == KindChar8:
		for i := 0; i < a.Count; i++ {
			av := n.buf.Data()[a.ElementOffset(i)]
			bv := other.buf.Data()[b.ElementOffset(i)]
			if av != bv {
				writeDiffInfo(info, fmt.Sprintf("character %d differs: %q vs %q", i, av, bv))
				return true
			}
		}
		return false

	default:
		writeDiffInfo(info, fmt.Sprintf("kind mismatch: %s vs %s", a.Kind, b.Kind))
		return true
	}
}
