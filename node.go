package datatree

import (
	"fmt"

	"github.com/scigolib/datatree/internal/buffer"
	"github.com/scigolib/datatree/internal/utils"
)

type shape uint8

const (
	shapeEmpty shape = iota
	shapeLeaf
	shapeObject
)

// childEntry pairs a child name with its node. Children live in a slice so
// insertion order stays observable through Paths.
type childEntry struct {
	name string
	node *Node
}

// Node is a cell of the hierarchical tree. It is exactly one of: empty, a
// typed leaf (DataType over a byte region), or an object holding an ordered
// mapping of named child nodes. Every mutation that changes the shape
// releases the prior state first. A Node graph is exclusively owned by its
// holder; there is no internal locking.
type Node struct {
	shape    shape
	dtype    DataType
	buf      buffer.Buffer
	children []childEntry
}

// NewNode returns an empty node: no type, no children.
func NewNode() *Node {
	return &Node{}
}

// cleanup releases whatever state the node currently holds. Owned buffers
// are released, children dropped recursively.
func (n *Node) cleanup() {
	for i := range n.children {
		n.children[i].node.cleanup()
	}
	n.children = nil
	n.buf.Release()
	n.dtype = EmptyType()
	n.shape = shapeEmpty
}

// Reset returns the node to the empty state.
func (n *Node) Reset() {
	n.cleanup()
}

// IsEmpty reports whether the node holds neither a typed view nor children.
func (n *Node) IsEmpty() bool { return n.shape == shapeEmpty }

// IsLeaf reports whether the node holds a typed view.
func (n *Node) IsLeaf() bool { return n.shape == shapeLeaf }

// IsObject reports whether the node holds named children.
func (n *Node) IsObject() bool { return n.shape == shapeObject }

// Dtype returns the leaf descriptor, or the empty descriptor for object and
// empty nodes.
func (n *Node) Dtype() DataType {
	if n.shape != shapeLeaf {
		return EmptyType()
	}
	return n.dtype
}

// Alloced reports whether the node owns its buffer.
func (n *Node) Alloced() bool {
	return n.buf.Alloced()
}

// Bytes returns the raw byte region behind a leaf, or nil otherwise. The
// region is shared, not copied.
func (n *Node) Bytes() []byte {
	if n.shape != shapeLeaf {
		return nil
	}
	return n.buf.Data()
}

// initLeaf transitions the node to a leaf described by dt, allocating a
// fresh zero-filled owned region spanning the descriptor.
func (n *Node) initLeaf(dt DataType) error {
	span, err := dt.SpanBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAllocFailure, err)
	}

	n.cleanup()
	if err := n.buf.Allocate(span); err != nil {
		return fmt.Errorf("%w: %v", ErrAllocFailure, err)
	}
	n.dtype = dt
	n.shape = shapeLeaf
	return nil
}

// SetDataType transitions the node to a leaf of the given descriptor backed
// by a fresh zero-filled owned buffer.
func (n *Node) SetDataType(dt DataType) error {
	if dt.IsEmpty() {
		n.cleanup()
		return nil
	}
	return n.initLeaf(dt)
}

// Set deep-copies other into n. Owned leaves are re-packed into compact
// buffers; external leaves are copied as new external views over the same
// bytes; objects are copied child by child in insertion order.
func (n *Node) Set(other *Node) error {
	if n == other {
		return nil
	}

	switch other.shape {
	case shapeEmpty:
		n.cleanup()
		return nil

	case shapeLeaf:
		if !other.buf.Alloced() {
			n.cleanup()
			n.buf.Attach(other.buf.Data())
			n.dtype = other.dtype
			n.shape = shapeLeaf
			return nil
		}

		src := other.dtype
		dst := NewDataType(src.Kind, src.Count, 0, src.ElementBytes, src.ElementBytes, src.Endianness)
		if err := n.initLeaf(dst); err != nil {
			return err
		}
		copyElements(n.buf.Data(), dst, other.buf.Data(), src)
		return nil

	default:
		// Copy into a scratch object first so a failing child copy cannot
		// leave n half-replaced.
		scratch := make([]childEntry, 0, len(other.children))
		for _, entry := range other.children {
			child := NewNode()
			if err := child.Set(entry.node); err != nil {
				return utils.WrapError(fmt.Sprintf("copy child %q", entry.name), err)
			}
			scratch = append(scratch, childEntry{name: entry.name, node: child})
		}
		n.cleanup()
		n.children = scratch
		n.shape = shapeObject
		return nil
	}
}

// copyElements copies count elements of elementBytes each from the strided
// src view into the dst view, byte-wise so packed views survive.
func copyElements(dstData []byte, dst DataType, srcData []byte, src DataType) {
	for i := 0; i < src.Count; i++ {
		so := src.ElementOffset(i)
		do := dst.ElementOffset(i)
		copy(dstData[do:do+dst.ElementBytes], srcData[so:so+src.ElementBytes])
	}
}

// SetUInt32 makes the node a one-element uint32 leaf holding v.
func (n *Node) SetUInt32(v uint32) error {
	dt := UInt32(1)
	if err := n.initLeaf(dt); err != nil {
		return err
	}
	dt.writeInt64(n.buf.Data(), 0, int64(v))
	return nil
}

// SetFloat64 makes the node a one-element float64 leaf holding v.
func (n *Node) SetFloat64(v float64) error {
	dt := Float64(1)
	if err := n.initLeaf(dt); err != nil {
		return err
	}
	dt.writeFloat64(n.buf.Data(), 0, v)
	return nil
}

// SetInt32Slice makes the node a compact int32 leaf holding v.
func (n *Node) SetInt32Slice(v []int32) error {
	dt := Int32(len(v))
	if err := n.initLeaf(dt); err != nil {
		return err
	}
	data := n.buf.Data()
	for i, x := range v {
		dt.writeInt64(data, i, int64(x))
	}
	return nil
}

// SetInt64Slice makes the node a compact int64 leaf holding v.
func (n *Node) SetInt64Slice(v []int64) error {
	dt := Int64(len(v))
	if err := n.initLeaf(dt); err != nil {
		return err
	}
	data := n.buf.Data()
	for i, x := range v {
		dt.writeInt64(data, i, x)
	}
	return nil
}

// SetUInt32Slice makes the node a compact uint32 leaf holding v.
func (n *Node) SetUInt32Slice(v []uint32) error {
	dt := UInt32(len(v))
	if err := n.initLeaf(dt); err != nil {
		return err
	}
	data := n.buf.Data()
	for i, x := range v {
		dt.writeInt64(data, i, int64(x))
	}
	return nil
}

// SetFloat32Slice makes the node a compact float32 leaf holding v.
func (n *Node) SetFloat32Slice(v []float32) error {
	dt := Float32(len(v))
	if err := n.initLeaf(dt); err != nil {
		return err
	}
	data := n.buf.Data()
	for i, x := range v {
		dt.writeFloat64(data, i, float64(x))
	}
	return nil
}

// SetFloat64Slice makes the node a compact float64 leaf holding v.
func (n *Node) SetFloat64Slice(v []float64) error {
	dt := Float64(len(v))
	if err := n.initLeaf(dt); err != nil {
		return err
	}
	data := n.buf.Data()
	for i, x := range v {
		dt.writeFloat64(data, i, x)
	}
	return nil
}

// SetString makes the node a char8 leaf holding the bytes of s.
func (n *Node) SetString(s string) error {
	dt := Char8(len(s))
	if err := n.initLeaf(dt); err != nil {
		return err
	}
	copy(n.buf.Data(), s)
	return nil
}

// SetExternal makes the node a non-owning leaf interpreting data through dt.
// The caller keeps ownership of data and must keep it alive while the node
// references it.
func (n *Node) SetExternal(data []byte, dt DataType) error {
	span, err := dt.SpanBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	if span > uint64(len(data)) {
		return fmt.Errorf("%w: descriptor spans %d bytes, region has %d", ErrOutOfRange, span, len(data))
	}

	n.cleanup()
	n.buf.Attach(data)
	n.dtype = dt
	n.shape = shapeLeaf
	return nil
}

// SetExternalNode makes the node a non-owning leaf using the descriptor of
// the given schema node.
func (n *Node) SetExternalNode(data []byte, schemaNode *Node) error {
	dt := schemaNode.Dtype()
	if dt.IsEmpty() {
		return fmt.Errorf("%w: schema node has no descriptor", ErrNotALeaf)
	}
	return n.SetExternal(data, dt)
}

// SetExternalSchema parses a leaf schema string and makes the node a
// non-owning leaf interpreting data through it.
func (n *Node) SetExternalSchema(data []byte, schema string) error {
	dt, err := ParseSchema(schema)
	if err != nil {
		return err
	}
	return n.SetExternal(data, dt)
}

// Child returns the immediate child with the given name, or nil when the
// node is not an object or has no such child.
func (n *Node) Child(name string) *Node {
	if n.shape != shapeObject {
		return nil
	}
	name = normalizeSegment(name)
	for i := range n.children {
		if n.children[i].name == name {
			return n.children[i].node
		}
	}
	return nil
}

// NumChildren returns the number of immediate children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// ChildNames returns the immediate child names in insertion order.
func (n *Node) ChildNames() []string {
	names := make([]string, len(n.children))
	for i := range n.children {
		names[i] = n.children[i].name
	}
	return names
}

// Remove drops the immediate child with the given name.
func (n *Node) Remove(name string) error {
	if n.shape != shapeObject {
		return fmt.Errorf("%w: cannot remove %q", ErrNotAnObject, name)
	}
	name = normalizeSegment(name)
	for i := range n.children {
		if n.children[i].name == name {
			n.children[i].node.cleanup()
			n.children = append(n.children[:i], n.children[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: no child %q", ErrOutOfRange, name)
}

// child finds or inserts the immediate child with the given (normalized)
// name. Insertion transitions the node to the object shape, discarding any
// leaf state.
func (n *Node) child(name string) *Node {
	if n.shape != shapeObject {
		n.cleanup()
		n.shape = shapeObject
	}
	for i := range n.children {
		if n.children[i].name == name {
			return n.children[i].node
		}
	}
	node := NewNode()
	n.children = append(n.children, childEntry{name: name, node: node})
	return node
}

// ToInt64 reads element 0 of a non-empty leaf, widening to int64.
func (n *Node) ToInt64() (int64, error) {
	if n.shape != shapeLeaf || n.dtype.Count == 0 {
		return 0, fmt.Errorf("%w: integer coercion", ErrNotALeaf)
	}
	return n.dtype.readInt64(n.buf.Data(), 0), nil
}

// ToFloat64 reads element 0 of a non-empty leaf, widening to float64.
func (n *Node) ToFloat64() (float64, error) {
	if n.shape != shapeLeaf || n.dtype.Count == 0 {
		return 0, fmt.Errorf("%w: real coercion", ErrNotALeaf)
	}
	return n.dtype.readFloat64(n.buf.Data(), 0), nil
}

// ElementInt64 reads element i of a leaf, widening to int64.
func (n *Node) ElementInt64(i int) (int64, error) {
	if n.shape != shapeLeaf {
		return 0, fmt.Errorf("%w: element read", ErrNotALeaf)
	}
	if i < 0 || i >= n.dtype.Count {
		return 0, fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, n.dtype.Count)
	}
	return n.dtype.readInt64(n.buf.Data(), i), nil
}

// ElementFloat64 reads element i of a leaf, widening to float64.
func (n *Node) ElementFloat64(i int) (float64, error) {
	if n.shape != shapeLeaf {
		return 0, fmt.Errorf("%w: element read", ErrNotALeaf)
	}
	if i < 0 || i >= n.dtype.Count {
		return 0, fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, n.dtype.Count)
	}
	return n.dtype.readFloat64(n.buf.Data(), i), nil
}

// SetElementInt64 stores v, narrowed to the leaf kind, into element i.
func (n *Node) SetElementInt64(i int, v int64) error {
	if n.shape != shapeLeaf {
		return fmt.Errorf("%w: element write", ErrNotALeaf)
	}
	if i < 0 || i >= n.dtype.Count {
		return fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, n.dtype.Count)
	}
	n.dtype.writeInt64(n.buf.Data(), i, v)
	return nil
}

// SetElementFloat64 stores v, narrowed to the leaf kind, into element i.
func (n *Node) SetElementFloat64(i int, v float64) error {
	if n.shape != shapeLeaf {
		return fmt.Errorf("%w: element write", ErrNotALeaf)
	}
	if i < 0 || i >= n.dtype.Count {
		return fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, n.dtype.Count)
	}
	n.dtype.writeFloat64(n.buf.Data(), i, v)
	return nil
}

// requireKind checks that the node is a non-empty leaf of the given kind.
func (n *Node) requireKind(kind Kind) error {
	if n.shape != shapeLeaf || n.dtype.Count == 0 {
		return fmt.Errorf("%w: typed access", ErrNotALeaf)
	}
	if n.dtype.Kind != kind {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, n.dtype.Kind, kind)
	}
	return nil
}

// AsUInt32 reads element 0 of a uint32 leaf.
func (n *Node) AsUInt32() (uint32, error) {
	if err := n.requireKind(KindUInt32); err != nil {
		return 0, err
	}
	return uint32(n.dtype.readInt64(n.buf.Data(), 0)), nil
}

// AsInt32 reads element 0 of an int32 leaf.
func (n *Node) AsInt32() (int32, error) {
	if err := n.requireKind(KindInt32); err != nil {
		return 0, err
	}
	return int32(n.dtype.readInt64(n.buf.Data(), 0)), nil
}

// AsFloat32 reads element 0 of a float32 leaf.
func (n *Node) AsFloat32() (float32, error) {
	if err := n.requireKind(KindFloat32); err != nil {
		return 0, err
	}
	return float32(n.dtype.readFloat64(n.buf.Data(), 0)), nil
}

// AsFloat64 reads element 0 of a float64 leaf.
func (n *Node) AsFloat64() (float64, error) {
	if err := n.requireKind(KindFloat64); err != nil {
		return 0, err
	}
	return n.dtype.readFloat64(n.buf.Data(), 0), nil
}

// AsString decodes a char8 leaf as a string.
func (n *Node) AsString() (string, error) {
	if n.shape != shapeLeaf {
		return "", fmt.Errorf("%w: string access", ErrNotALeaf)
	}
	if n.dtype.Kind != KindChar8 {
		return "", fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, n.dtype.Kind, KindChar8)
	}
	data := n.buf.Data()
	out := make([]byte, n.dtype.Count)
	for i := 0; i < n.dtype.Count; i++ {
		out[i] = data[n.dtype.ElementOffset(i)]
	}
	return string(out), nil
}

// UInt32Values decodes a uint32 leaf into a fresh slice, honoring stride.
func (n *Node) UInt32Values() ([]uint32, error) {
	if err := n.kindForValues(KindUInt32); err != nil {
		return nil, err
	}
	out := make([]uint32, n.dtype.Count)
	for i := range out {
		out[i] = uint32(n.dtype.readInt64(n.buf.Data(), i))
	}
	return out, nil
}

// Int32Values decodes an int32 leaf into a fresh slice, honoring stride.
func (n *Node) Int32Values() ([]int32, error) {
	if err := n.kindForValues(KindInt32); err != nil {
		return nil, err
	}
	out := make([]int32, n.dtype.Count)
	for i := range out {
		out[i] = int32(n.dtype.readInt64(n.buf.Data(), i))
	}
	return out, nil
}

// Int64Values decodes an int64 leaf into a fresh slice, honoring stride.
func (n *Node) Int64Values() ([]int64, error) {
	if err := n.kindForValues(KindInt64); err != nil {
		return nil, err
	}
	out := make([]int64, n.dtype.Count)
	for i := range out {
		out[i] = n.dtype.readInt64(n.buf.Data(), i)
	}
	return out, nil
}

// Float32Values decodes a float32 leaf into a fresh slice, honoring stride.
func (n *Node) Float32Values() ([]float32, error) {
	if err := n.kindForValues(KindFloat32); err != nil {
		return nil, err
	}
	out := make([]float32, n.dtype.Count)
	for i := range out {
		out[i] = float32(n.dtype.readFloat64(n.buf.Data(), i))
	}
	return out, nil
}

// Float64Values decodes a float64 leaf into a fresh slice, honoring stride.
func (n *Node) Float64Values() ([]float64, error) {
	if err := n.kindForValues(KindFloat64); err != nil {
		return nil, err
	}
	out := make([]float64, n.dtype.Count)
	for i := range out {
		out[i] = n.dtype.readFloat64(n.buf.Data(), i)
	}
	return out, nil
}

func (n *Node) kindForValues(kind Kind) error {
	if n.shape != shapeLeaf {
		return fmt.Errorf("%w: typed access", ErrNotALeaf)
	}
	if n.dtype.Kind != kind {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, n.dtype.Kind, kind)
	}
	return nil
}
