package o2m

import (
	"fmt"

	"github.com/scigolib/datatree"
)

// Axis selects one of the three iteration dimensions of a relation: the
// group, the position within a group, or the resolved position in the data
// array.
type Axis int

// Iteration axes.
const (
	One Axis = iota
	Many
	Data
)

// String returns the axis name.
func (a Axis) String() string {
	switch a {
	case One:
		return "one"
	case Many:
		return "many"
	case Data:
		return "data"
	default:
		return fmt.Sprintf("axis_%d", int(a))
	}
}

// Iterator is a stateful bidirectional cursor over a relation. It carries a
// (one, many) coordinate pair; the DATA position is derived through the
// relation's indirection. The relation must not mutate while the iterator
// is live.
//
// A fresh iterator sits before the first element: HasPrevious is false on
// every axis, the first Next on ONE or MANY yields index 0, and the first
// Next on DATA yields the resolved data position of element (0, 0).
type Iterator struct {
	idx *Index

	// visits[g] is the number of logical visits before group g; the last
	// entry is the total. Distinct from the relation's offsets, which
	// address the indirection space, not the visit order.
	visits []int64

	one   int
	many  int
	front bool
	back  bool
}

// NewIterator builds a cursor over the relation n, positioned before the
// first element.
func NewIterator(n *datatree.Node) (*Iterator, error) {
	idx, err := NewIndex(n)
	if err != nil {
		return nil, err
	}
	return NewIndexIterator(idx), nil
}

// NewIndexIterator builds a cursor over an already-constructed index.
func NewIndexIterator(idx *Index) *Iterator {
	visits := make([]int64, idx.Size()+1)
	for g := 0; g < idx.Size(); g++ {
		visits[g+1] = visits[g] + idx.groupSize(g)
	}

	it := &Iterator{idx: idx, visits: visits}
	it.ToFront()
	return it
}

// total is the number of logical visits on the DATA axis.
func (it *Iterator) total() int64 {
	return it.visits[len(it.visits)-1]
}

// visit is the linear DATA-axis position of the cursor: -1 before the
// first element, total after the last.
func (it *Iterator) visit() int64 {
	switch {
	case it.front:
		return -1
	case it.back:
		return it.total()
	default:
		return it.visits[it.one] + int64(it.many)
	}
}

// seekVisit places the cursor on the v-th logical visit.
func (it *Iterator) seekVisit(v int64) {
	g := 0
	for it.visits[g+1] <= v {
		g++
	}
	it.one = g
	it.many = int(v - it.visits[g])
	it.front = false
	it.back = false
}

// ToFront places the cursor before the first element.
func (it *Iterator) ToFront() {
	it.one = 0
	it.many = 0
	it.front = true
	it.back = false
}

// ToBack places the cursor after the last element.
func (it *Iterator) ToBack() {
	it.one = 0
	it.many = 0
	it.front = false
	it.back = true
}

// HasNext reports whether an advance on the axis would land on an element.
func (it *Iterator) HasNext(axis Axis) bool {
	if axis == One {
		if it.back {
			return false
		}
		if it.front {
			return it.idx.Size() > 0
		}
		return it.one+1 < it.idx.Size()
	}
	return it.visit() < it.total()-1
}

// HasPrevious reports whether a retreat on the axis would land on an element.
func (it *Iterator) HasPrevious(axis Axis) bool {
	if axis == One {
		if it.front {
			return false
		}
		if it.back {
			return it.idx.Size() > 0
		}
		return it.one > 0
	}
	return it.visit() > 0
}

// Next advances the cursor on the axis and returns the new index on that
// axis. MANY advances within the current group and rolls into the next
// group at many=0; ONE jumps to the next group and resets many to 0; DATA
// advances one logical element through the indirection.
func (it *Iterator) Next(axis Axis) (int, error) {
	switch axis {
	case One:
		if !it.HasNext(One) {
			return 0, fmt.Errorf("%w: next on %s axis", datatree.ErrOutOfRange, axis)
		}
		if it.front {
			it.front = false
			it.one = 0
		} else {
			it.one++
		}
		it.many = 0
		return it.one, nil

	case Many, Data:
		if !it.HasNext(axis) {
			return 0, fmt.Errorf("%w: next on %s axis", datatree.ErrOutOfRange, axis)
		}
		it.seekVisit(it.visit() + 1)
		if axis == Many {
			return it.many, nil
		}
		return it.idx.Index(it.one, it.many)

	default:
		return 0, fmt.Errorf("%w: unknown axis %d", datatree.ErrOutOfRange, int(axis))
	}
}

// Previous retreats the cursor on the axis and returns the new index on
// that axis.
func (it *Iterator) Previous(axis Axis) (int, error) {
	switch axis {
	case One:
		if !it.HasPrevious(One) {
			return 0, fmt.Errorf("%w: previous on %s axis", datatree.ErrOutOfRange, axis)
		}
		if it.back {
			it.back = false
			it.one = it.idx.Size() - 1
		} else {
			it.one--
		}
		it.many = 0
		return it.one, nil

	case Many, Data:
		if !it.HasPrevious(axis) {
			return 0, fmt.Errorf("%w: previous on %s axis", datatree.ErrOutOfRange, axis)
		}
		it.seekVisit(it.visit() - 1)
		if axis == Many {
			return it.many, nil
		}
		return it.idx.Index(it.one, it.many)

	default:
		return 0, fmt.Errorf("%w: unknown axis %d", datatree.ErrOutOfRange, int(axis))
	}
}

// PeekNext returns what Next would yield without moving the cursor.
func (it *Iterator) PeekNext(axis Axis) (int, error) {
	probe := *it
	return probe.Next(axis)
}

// PeekPrevious returns what Previous would yield without moving the cursor.
func (it *Iterator) PeekPrevious(axis Axis) (int, error) {
	probe := *it
	return probe.Previous(axis)
}

// Index reports the current index on the axis: ONE the current group, MANY
// the position within it, DATA the resolved data position. Before-first and
// after-last cursors have no current index.
func (it *Iterator) Index(axis Axis) (int, error) {
	if it.front || it.back {
		return 0, fmt.Errorf("%w: cursor holds no element", datatree.ErrOutOfRange)
	}
	switch axis {
	case One:
		return it.one, nil
	case Many:
		return it.many, nil
	case Data:
		return it.idx.Index(it.one, it.many)
	default:
		return 0, fmt.Errorf("%w: unknown axis %d", datatree.ErrOutOfRange, int(axis))
	}
}

// To seeks the cursor: for ONE it sets one=k and many=0, for MANY it sets
// many=k within the current group, for DATA it seeks the k-th logical
// visit, not the k-th raw data slot.
func (it *Iterator) To(k int, axis Axis) error {
	switch axis {
	case One:
		if k < 0 || k >= it.idx.Size() {
			return fmt.Errorf("%w: one=%d of %d", datatree.ErrOutOfRange, k, it.idx.Size())
		}
		it.one = k
		it.many = 0
		it.front = false
		it.back = false
		return nil

	case Many:
		one := it.currentGroup()
		size := it.idx.groupSize(one)
		if k < 0 || int64(k) >= size {
			return fmt.Errorf("%w: many=%d of group size %d", datatree.ErrOutOfRange, k, size)
		}
		it.one = one
		it.many = k
		it.front = false
		it.back = false
		return nil

	case Data:
		if k < 0 || int64(k) >= it.total() {
			return fmt.Errorf("%w: visit %d of %d", datatree.ErrOutOfRange, k, it.total())
		}
		it.seekVisit(int64(k))
		return nil

	default:
		return fmt.Errorf("%w: unknown axis %d", datatree.ErrOutOfRange, int(axis))
	}
}

// currentGroup resolves the group a MANY seek applies to when the cursor
// sits on an edge position.
func (it *Iterator) currentGroup() int {
	switch {
	case it.front:
		return 0
	case it.back:
		return it.idx.Size() - 1
	default:
		return it.one
	}
}

// Elements returns the element count on the axis: ONE the number of groups,
// MANY the size of the current group, DATA the total number of logical
// visits.
func (it *Iterator) Elements(axis Axis) (int, error) {
	switch axis {
	case One:
		return it.idx.Size(), nil
	case Many:
		if it.idx.Size() == 0 {
			return 0, nil
		}
		return int(it.idx.groupSize(it.currentGroup())), nil
	case Data:
		return int(it.total()), nil
	default:
		return 0, fmt.Errorf("%w: unknown axis %d", datatree.ErrOutOfRange, int(axis))
	}
}
