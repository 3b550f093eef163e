package o2m

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/datatree"
)

func mustFetch(t *testing.T, n *datatree.Node, path string) *datatree.Node {
	t.Helper()
	child, err := n.Fetch(path)
	require.NoError(t, err)
	return child
}

func TestVerifyUniformVariants(t *testing.T) {
	tests := []struct {
		name               string
		ones, many, offset int
		mode               string
	}{
		{"data only", 10, 0, 0, ""},
		{"sizes and offsets", 5, 2, 0, ""},
		{"sparse offsets", 5, 2, 4, ""},
		{"reversed indices", 5, 0, 0, IndexReversed},
		{"full", 5, 3, 4, IndexDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := datatree.NewNode()
			info := datatree.NewNode()
			require.NoError(t, Uniform(n, tt.ones, tt.many, tt.offset, tt.mode))
			assert.True(t, Verify(n, info))

			valid, err := info.Child("valid").AsString()
			require.NoError(t, err)
			assert.Equal(t, "true", valid)
		})
	}
}

func TestVerifyFailures(t *testing.T) {
	t.Run("empty node", func(t *testing.T) {
		n := datatree.NewNode()
		info := datatree.NewNode()
		assert.False(t, Verify(n, info))
		assert.True(t, info.HasPath("errors"))
	})

	t.Run("leaf node", func(t *testing.T) {
		n := datatree.NewNode()
		require.NoError(t, n.SetUInt32(1))
		assert.False(t, Verify(n, datatree.NewNode()))
	})

	t.Run("no data path", func(t *testing.T) {
		n := datatree.NewNode()
		require.NoError(t, mustFetch(t, n, "note").SetString("just text"))
		info := datatree.NewNode()
		assert.False(t, Verify(n, info))
	})

	t.Run("float sizes", func(t *testing.T) {
		n := datatree.NewNode()
		require.NoError(t, mustFetch(t, n, "data").SetFloat32Slice([]float32{1, 2}))
		require.NoError(t, mustFetch(t, n, ChildSizes).SetFloat64Slice([]float64{1, 1}))
		assert.False(t, Verify(n, datatree.NewNode()))
	})

	t.Run("sizes exceed data", func(t *testing.T) {
		n := datatree.NewNode()
		require.NoError(t, mustFetch(t, n, "data").SetFloat32Slice([]float32{1, 2, 3}))
		require.NoError(t, mustFetch(t, n, ChildSizes).SetInt32Slice([]int32{2, 2}))
		assert.False(t, Verify(n, datatree.NewNode()))
	})

	t.Run("offsets sizes length mismatch", func(t *testing.T) {
		n := datatree.NewNode()
		require.NoError(t, mustFetch(t, n, "data").SetFloat32Slice([]float32{1, 2, 3, 4}))
		require.NoError(t, mustFetch(t, n, ChildSizes).SetInt32Slice([]int32{2, 2}))
		require.NoError(t, mustFetch(t, n, ChildOffsets).SetInt32Slice([]int32{0}))
		assert.False(t, Verify(n, datatree.NewNode()))
	})

	t.Run("offset outside space", func(t *testing.T) {
		n := datatree.NewNode()
		require.NoError(t, mustFetch(t, n, "data").SetFloat32Slice([]float32{1, 2, 3}))
		require.NoError(t, mustFetch(t, n, ChildSizes).SetInt32Slice([]int32{1, 1}))
		require.NoError(t, mustFetch(t, n, ChildOffsets).SetInt32Slice([]int32{0, 9}))
		assert.False(t, Verify(n, datatree.NewNode()))
	})
}

func TestDataPaths(t *testing.T) {
	baseline := datatree.NewNode()
	require.NoError(t, mustFetch(t, baseline, "data").SetDataType(datatree.Float32(20)))
	require.NoError(t, mustFetch(t, baseline, ChildSizes).SetDataType(datatree.Int32(4)))
	require.NoError(t, mustFetch(t, baseline, ChildOffsets).SetDataType(datatree.Int32(4)))
	require.NoError(t, mustFetch(t, baseline, ChildIndices).SetDataType(datatree.Int32(16)))

	assert.Equal(t, []string{"data"}, DataPaths(baseline))

	n := datatree.NewNode()
	require.NoError(t, n.Set(baseline))
	require.NoError(t, mustFetch(t, n, "more_data").Set(n.Child("data")))
	require.NoError(t, mustFetch(t, n, "not_data_str").SetString("string"))
	require.NoError(t, mustFetch(t, n, "not_data_obj.nv1").Set(n.Child("data")))
	require.NoError(t, mustFetch(t, n, "not_data_obj.nv2").Set(n.Child("data")))

	assert.Equal(t, []string{"data", "more_data"}, DataPaths(n))
}

func TestGenerateOffsets(t *testing.T) {
	t.Run("empty node fails", func(t *testing.T) {
		info := datatree.NewNode()
		assert.False(t, GenerateOffsets(datatree.NewNode(), info))
		assert.True(t, info.HasPath("errors"))
	})

	t.Run("no sizes fails", func(t *testing.T) {
		n := datatree.NewNode()
		require.NoError(t, mustFetch(t, n, "test").SetString("value"))
		assert.False(t, GenerateOffsets(n, datatree.NewNode()))
	})

	t.Run("contiguous regeneration matches", func(t *testing.T) {
		ref := datatree.NewNode()
		require.NoError(t, Uniform(ref, 5, 3, 3, ""))

		n := datatree.NewNode()
		require.NoError(t, n.Set(ref))
		require.NoError(t, n.Remove(ChildOffsets))

		info := datatree.NewNode()
		require.True(t, GenerateOffsets(n, info))
		assert.True(t, Verify(n, info))
		assert.False(t, ref.Diff(n, datatree.NewNode(), 0, true))
	})

	t.Run("sparse source gets dense offsets", func(t *testing.T) {
		ref := datatree.NewNode()
		require.NoError(t, Uniform(ref, 5, 3, 4, ""))

		n := datatree.NewNode()
		require.NoError(t, n.Set(ref))
		require.NoError(t, n.Remove(ChildOffsets))

		info := datatree.NewNode()
		require.True(t, GenerateOffsets(n, info))
		assert.True(t, Verify(n, info))

		// The regenerated offsets are the prefix sum, not the sparse ones.
		assert.True(t, ref.Diff(n, datatree.NewNode(), 0, false))

		dense := datatree.NewNode()
		require.NoError(t, Uniform(dense, 5, 3, 3, ""))
		assert.False(t, dense.Child(ChildSizes).Diff(n.Child(ChildSizes), nil, 0, false))
		assert.False(t, dense.Child(ChildOffsets).Diff(n.Child(ChildOffsets), nil, 0, true))
	})

	t.Run("prefix sum law", func(t *testing.T) {
		n := datatree.NewNode()
		require.NoError(t, mustFetch(t, n, "data").SetFloat32Slice(make([]float32, 9)))
		require.NoError(t, mustFetch(t, n, ChildSizes).SetInt32Slice([]int32{3, 1, 4}))

		require.True(t, GenerateOffsets(n, datatree.NewNode()))

		got, err := n.Child(ChildOffsets).Int32Values()
		require.NoError(t, err)
		assert.Equal(t, []int32{0, 3, 4}, got)
	})
}

func TestCompactToNoCompaction(t *testing.T) {
	ref := datatree.NewNode()
	require.NoError(t, Uniform(ref, 5, 3, 3, ""))

	n := datatree.NewNode()
	info := datatree.NewNode()
	require.NoError(t, CompactTo(ref, n))

	assert.True(t, Verify(n, info))
	assert.False(t, ref.Diff(n, info, 0, false))
}

func TestCompactToSparse(t *testing.T) {
	ref := datatree.NewNode()
	require.NoError(t, Uniform(ref, 5, 3, 5, ""))

	n := datatree.NewNode()
	info := datatree.NewNode()
	require.NoError(t, CompactTo(ref, n))
	assert.True(t, Verify(n, info))

	// The packed data diverges from the sparse source...
	assert.True(t, ref.Diff(n, info, 0, false))

	// ...but sizes and offsets match the dense layout.
	dense := datatree.NewNode()
	require.NoError(t, Uniform(dense, 5, 3, 0, ""))
	assert.False(t, dense.Child(ChildSizes).Diff(n.Child(ChildSizes), nil, 0, false))
	assert.False(t, dense.Child(ChildOffsets).Diff(n.Child(ChildOffsets), nil, 0, false))

	got, err := n.Child("data").Float32Values()
	require.NoError(t, err)
	want := make([]float32, 15)
	for i := range want {
		want[i] = float32(i + 1)
	}
	assert.Equal(t, want, got)
}

func TestCompactToDropsIndices(t *testing.T) {
	ref := datatree.NewNode()
	require.NoError(t, Uniform(ref, 3, 4, 5, IndexReversed))

	n := datatree.NewNode()
	info := datatree.NewNode()
	require.NoError(t, CompactTo(ref, n))
	assert.True(t, Verify(n, info))

	assert.Equal(t, []string{"data", ChildSizes, ChildOffsets}, n.ChildNames())
	assert.Contains(t, ref.ChildNames(), ChildIndices)

	// Per-child kinds survive the compaction.
	for _, name := range n.ChildNames() {
		assert.Equal(t, ref.Child(name).Dtype().Kind, n.Child(name).Dtype().Kind, name)
	}

	dense := datatree.NewNode()
	require.NoError(t, Uniform(dense, 3, 4, 0, ""))
	assert.False(t, dense.Child(ChildSizes).Diff(n.Child(ChildSizes), nil, 0, false))
	assert.False(t, dense.Child(ChildOffsets).Diff(n.Child(ChildOffsets), nil, 0, false))
}

func TestCompactToIndicesOnly(t *testing.T) {
	ref := datatree.NewNode()
	require.NoError(t, Uniform(ref, 5, 0, 0, IndexDefault))

	n := datatree.NewNode()
	require.NoError(t, CompactTo(ref, n))

	assert.Equal(t, []string{"data"}, n.ChildNames())
	got, err := n.Child("data").Float32Values()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, got)
}

func TestCompactToFixpoint(t *testing.T) {
	src := datatree.NewNode()
	require.NoError(t, Uniform(src, 5, 3, 5, IndexDefault))

	once := datatree.NewNode()
	require.NoError(t, CompactTo(src, once))

	twice := datatree.NewNode()
	require.NoError(t, CompactTo(once, twice))

	assert.False(t, once.Diff(twice, datatree.NewNode(), 0, false))
}

func TestCompactToInvalidRelation(t *testing.T) {
	n := datatree.NewNode()
	require.NoError(t, n.SetUInt32(1))

	err := CompactTo(n, datatree.NewNode())
	assert.ErrorIs(t, err, datatree.ErrInvalidRelation)
}

func TestCompactToKeepsAnnotations(t *testing.T) {
	ref := datatree.NewNode()
	require.NoError(t, Uniform(ref, 3, 2, 4, ""))
	require.NoError(t, mustFetch(t, ref, "label").SetString("left side"))

	n := datatree.NewNode()
	require.NoError(t, CompactTo(ref, n))

	require.True(t, n.HasPath("label"))
	label, err := n.Child("label").AsString()
	require.NoError(t, err)
	assert.Equal(t, "left side", label)
}
