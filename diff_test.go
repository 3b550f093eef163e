package datatree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafOfInt32(t *testing.T, v []int32) *Node {
	t.Helper()
	n := NewNode()
	require.NoError(t, n.SetInt32Slice(v))
	return n
}

func leafOfFloat64(t *testing.T, v []float64) *Node {
	t.Helper()
	n := NewNode()
	require.NoError(t, n.SetFloat64Slice(v))
	return n
}

func TestDiffEqualLeaves(t *testing.T) {
	a := leafOfInt32(t, []int32{1, 2, 3})
	b := leafOfInt32(t, []int32{1, 2, 3})
	info := NewNode()

	assert.False(t, a.Diff(b, info, 0, false))
}

func TestDiffValueMismatch(t *testing.T) {
	a := leafOfInt32(t, []int32{1, 2, 3})
	b := leafOfInt32(t, []int32{1, 9, 3})
	info := NewNode()

	assert.True(t, a.Diff(b, info, 0, false))

	msg, err := info.AsString()
	require.NoError(t, err)
	assert.Contains(t, msg, "element 1")
}

func TestDiffShapeMismatch(t *testing.T) {
	a := leafOfInt32(t, []int32{1})
	b := NewNode()
	_, err := b.Fetch("child")
	require.NoError(t, err)

	info := NewNode()
	assert.True(t, a.Diff(b, info, 0, false))

	msg, err := info.AsString()
	require.NoError(t, err)
	assert.Contains(t, msg, "shape mismatch")
}

func TestDiffCountMismatch(t *testing.T) {
	a := leafOfInt32(t, []int32{1, 2})
	b := leafOfInt32(t, []int32{1, 2, 3})

	assert.True(t, a.Diff(b, nil, 0, false))
}

func TestDiffIntegerRelaxation(t *testing.T) {
	a := leafOfInt32(t, []int32{1, 2, 3})
	b := NewNode()
	require.NoError(t, b.SetInt64Slice([]int64{1, 2, 3}))

	// Width mismatch is a difference unless relaxed.
	assert.True(t, a.Diff(b, nil, 0, false))
	assert.False(t, a.Diff(b, nil, 0, true))

	// Relaxation still compares values.
	require.NoError(t, b.SetElementInt64(2, 4))
	assert.True(t, a.Diff(b, nil, 0, true))
}

func TestDiffFloatEpsilon(t *testing.T) {
	a := leafOfFloat64(t, []float64{1.0, 2.0})
	b := leafOfFloat64(t, []float64{1.0005, 2.0})

	assert.True(t, a.Diff(b, nil, 0, false))
	assert.False(t, a.Diff(b, nil, 0.001, false))
}

func TestDiffIntFloatMismatch(t *testing.T) {
	a := leafOfInt32(t, []int32{1})
	b := leafOfFloat64(t, []float64{1})
	info := NewNode()

	assert.True(t, a.Diff(b, info, 0, true))
}

func TestDiffStrings(t *testing.T) {
	a := NewNode()
	require.NoError(t, a.SetString("mesh"))
	b := NewNode()
	require.NoError(t, b.SetString("mesh"))

	assert.False(t, a.Diff(b, nil, 0, false))

	require.NoError(t, b.SetString("mess"))
	assert.True(t, a.Diff(b, nil, 0, false))
}

func TestDiffObjects(t *testing.T) {
	build := func(t *testing.T) *Node {
		n := NewNode()
		leaf, err := n.Fetch("coords.x")
		require.NoError(t, err)
		require.NoError(t, leaf.SetFloat64Slice([]float64{0, 1}))
		meta, err := n.Fetch("name")
		require.NoError(t, err)
		require.NoError(t, meta.SetString("grid"))
		return n
	}

	a := build(t)
	b := build(t)
	info := NewNode()

	assert.False(t, a.Diff(b, info, 0, false))

	// Child-name sets compare order-independently.
	c := NewNode()
	meta, err := c.Fetch("name")
	require.NoError(t, err)
	require.NoError(t, meta.SetString("grid"))
	leaf, err := c.Fetch("coords.x")
	require.NoError(t, err)
	require.NoError(t, leaf.SetFloat64Slice([]float64{0, 1}))

	assert.False(t, a.Diff(c, info, 0, false))
}

func TestDiffMissingChild(t *testing.T) {
	a := NewNode()
	leaf, err := a.Fetch("present")
	require.NoError(t, err)
	require.NoError(t, leaf.SetUInt32(1))

	b := NewNode()
	other, err := b.Fetch("missing")
	require.NoError(t, err)
	require.NoError(t, other.SetUInt32(1))

	info := NewNode()
	assert.True(t, a.Diff(b, info, 0, false))

	require.True(t, info.HasPath("present"))
	require.True(t, info.HasPath("missing"))
}

func TestDiffRecursesIntoChildren(t *testing.T) {
	a := NewNode()
	av, err := a.Fetch("vals")
	require.NoError(t, err)
	require.NoError(t, av.SetInt32Slice([]int32{1, 2}))

	b := NewNode()
	bv, err := b.Fetch("vals")
	require.NoError(t, err)
	require.NoError(t, bv.SetInt32Slice([]int32{1, 7}))

	info := NewNode()
	assert.True(t, a.Diff(b, info, 0, false))

	detail := info.Child("vals")
	require.NotNil(t, detail)
	msg, err := detail.AsString()
	require.NoError(t, err)
	assert.Contains(t, msg, "element 1")
}

func TestDiffEmptyNodes(t *testing.T) {
	a := NewNode()
	b := NewNode()

	assert.False(t, a.Diff(b, nil, 0, false))
}

func TestDiffStridedAgainstCompact(t *testing.T) {
	// The same logical values behind different layouts compare equal.
	strided := NewNode()
	require.NoError(t, strided.SetDataType(NewDataType(KindInt32, 3, 0, 8, 4, LittleEndian)))
	for i := 0; i < 3; i++ {
		require.NoError(t, strided.SetElementInt64(i, int64(10*i)))
	}

	compact := leafOfInt32(t, []int32{0, 10, 20})

	assert.False(t, strided.Diff(compact, nil, 0, false))
}
