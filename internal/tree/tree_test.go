package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceview/internal/scale"
)

func sampleTree() *RawNode {
	return &RawNode{
		Name: "Home", Path: "/home/u", Kind: KindDirectory, Size: 2500,
		Children: []*RawNode{
			{
				Name: "A", Path: "/home/u/A", Kind: KindDirectory, Size: 2000,
				Children: []*RawNode{
					{Name: "a1.txt", Path: "/home/u/A/a1.txt", Kind: KindFile, Size: 1000, Extension: ".txt"},
					{Name: "a2.txt", Path: "/home/u/A/a2.txt", Kind: KindFile, Size: 1000, Extension: ".txt"},
				},
			},
			{Name: "b.txt", Path: "/home/u/b.txt", Kind: KindFile, Size: 500, Extension: ".txt"},
		},
	}
}

func TestBuildArenaInvariants(t *testing.T) {
	h := Builder{}.Build(sampleTree())
	require.Equal(t, 5, h.Len())

	for i := 0; i < h.Len(); i++ {
		n := h.Node(i)
		require.NotNil(t, n)
		assert.Equal(t, i, n.ID)
		if n.Parent >= 0 {
			assert.Less(t, n.Parent, n.ID, "parents precede children")
			assert.Contains(t, h.Node(n.Parent).Children, n.ID)
		}
	}

	root := h.Root()
	assert.Equal(t, "Home", root.Name)
	assert.Equal(t, -1, root.Parent)
	assert.Equal(t, 0, root.Depth)
}

func TestWeightConservation(t *testing.T) {
	h := Builder{Scale: scale.Linear(1)}.Build(sampleTree())

	var leafSum float64
	for _, id := range h.Leaves(0) {
		leafSum += h.Node(id).Weight
	}
	assert.InDelta(t, leafSum, h.Root().AggregateWeight, 1e-9)
	assert.Equal(t, 2500.0, h.Root().AggregateWeight)

	a, ok := h.Find("/home/u/A")
	require.True(t, ok)
	assert.Equal(t, 0.0, h.Node(a).Weight, "containers carry no direct weight")
	assert.Equal(t, 2000.0, h.Node(a).AggregateWeight)
}

func TestChildrenSortedByAggregate(t *testing.T) {
	h := Builder{Scale: scale.Linear(1)}.Build(sampleTree())
	root := h.Root()
	require.Len(t, root.Children, 2)
	assert.Equal(t, "A", h.Node(root.Children[0]).Name)
	assert.Equal(t, "b.txt", h.Node(root.Children[1]).Name)
}

func TestSortIsStableForTies(t *testing.T) {
	raw := &RawNode{Name: "r", Kind: KindDirectory}
	for _, name := range []string{"x", "y", "z"} {
		raw.Children = append(raw.Children, &RawNode{Name: name, Kind: KindFile, Size: 100})
	}
	h := Builder{Scale: scale.Linear(1)}.Build(raw)
	names := make([]string, 0, 3)
	for _, id := range h.Root().Children {
		names = append(names, h.Node(id).Name)
	}
	assert.Equal(t, []string{"x", "y", "z"}, names)
}

func TestNilAndEmptyInput(t *testing.T) {
	h := Builder{}.Build(nil)
	require.Equal(t, 1, h.Len())
	root := h.Root()
	assert.Equal(t, KindDirectory, root.Kind)
	assert.Greater(t, root.AggregateWeight, 0.0, "empty root still lays out")

	h = Builder{}.Build(&RawNode{Name: "empty", Kind: KindDirectory})
	assert.Equal(t, 1, h.Len())
	assert.True(t, h.Root().IsLeaf())
}

func TestMalformedInputCoercion(t *testing.T) {
	raw := &RawNode{
		Name: "r", Kind: "bogus", Size: -42,
		Children: []*RawNode{
			nil,
			{Name: "f", Kind: "", Size: 10, Extension: ".TXT"},
			{Name: "d", Kind: "???", HasChildren: true},
		},
	}
	h := Builder{Scale: scale.Linear(1)}.Build(raw)
	require.Equal(t, 3, h.Len())

	root := h.Root()
	assert.Equal(t, KindDirectory, root.Kind, "nodes with children coerce to directory")
	assert.Equal(t, int64(0), root.Size, "negative size clamps to zero")

	f := h.Node(root.Children[0])
	assert.Equal(t, KindFile, f.Kind)
	assert.Equal(t, ".txt", f.Extension, "extension is normalized to lower case")

	var d *Node
	for _, id := range root.Children {
		if h.Node(id).Name == "d" {
			d = h.Node(id)
		}
	}
	require.NotNil(t, d)
	assert.Equal(t, KindDirectory, d.Kind)
	assert.True(t, d.Navigable(), "truncated directories stay navigable")
}

func TestNavigable(t *testing.T) {
	h := Builder{}.Build(sampleTree())
	a, _ := h.Find("/home/u/A")
	b, _ := h.Find("/home/u/b.txt")
	assert.True(t, h.Node(a).Navigable())
	assert.False(t, h.Node(b).Navigable())

	free := Builder{}.Build(&RawNode{
		Name: "r", Path: "/", Kind: KindDirectory,
		Children: []*RawNode{{Name: "[Free Space]", Kind: KindFree, Size: 1 << 30}},
	})
	assert.False(t, free.Node(free.Root().Children[0]).Navigable())
}

func TestDepthCap(t *testing.T) {
	deep := &RawNode{Name: "0", Kind: KindDirectory}
	cur := deep
	for i := 1; i < 50; i++ {
		next := &RawNode{Name: "d", Kind: KindDirectory, Size: int64(i)}
		cur.Children = []*RawNode{next}
		cur = next
	}
	cur.Children = []*RawNode{{Name: "leaf", Kind: KindFile, Size: 7}}

	h := Builder{MaxDepth: 10, Scale: scale.Linear(1)}.Build(deep)
	assert.Equal(t, 11, h.Len(), "root plus ten levels")

	last := h.Node(h.Len() - 1)
	assert.True(t, last.IsLeaf())
	assert.True(t, last.HasChildren, "the cut point remembers it was truncated")
	assert.Equal(t, last.Weight, last.AggregateWeight)
}

func TestChainAndAncestors(t *testing.T) {
	h := Builder{}.Build(sampleTree())
	a1, ok := h.Find("/home/u/A/a1.txt")
	require.True(t, ok)
	a, _ := h.Find("/home/u/A")

	assert.Equal(t, []int{a, 0}, h.Ancestors(a1))
	assert.Equal(t, []int{a1, a, 0}, h.Chain(a1))
	assert.Equal(t, []int{0}, h.Chain(0))
	assert.Nil(t, h.Chain(99))
}

func TestWalkSkipsSubtree(t *testing.T) {
	h := Builder{}.Build(sampleTree())
	a, _ := h.Find("/home/u/A")

	var visited []string
	h.Walk(0, func(n *Node) bool {
		visited = append(visited, n.Name)
		return n.ID != a
	})
	assert.Equal(t, []string{"Home", "A", "b.txt"}, visited)
}
