package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceview/internal/scale"
	"spaceview/internal/tree"
)

func treemap() *Treemap { return &Treemap{TreemapConfig: DefaultTreemapConfig()} }

func TestTreemapRootFillsViewport(t *testing.T) {
	h := homeTree(t)
	f := treemap().Layout(h, 0, 800, 600)

	require.NotEmpty(t, f.Shapes)
	root := f.Shapes[0]
	assert.Equal(t, 0, root.NodeID, "the container rect is drawn first")
	assert.Equal(t, 0.0, root.X)
	assert.Equal(t, 0.0, root.Y)
	assert.Equal(t, 800.0, root.W)
	assert.Equal(t, 600.0, root.H)
}

func TestTreemapContainment(t *testing.T) {
	h := homeTree(t)
	f := treemap().Layout(h, 0, 800, 600)

	const eps = 0.5
	for i := range f.Shapes {
		s := &f.Shapes[i]
		if s.NodeID == f.Root {
			continue
		}
		p := f.ShapeFor(s.Parent)
		require.NotNil(t, p)
		assert.GreaterOrEqual(t, s.X, p.X-eps, "%s vs %s", s.Name, p.Name)
		assert.GreaterOrEqual(t, s.Y, p.Y-eps)
		assert.LessOrEqual(t, s.X+s.W, p.X+p.W+eps)
		assert.LessOrEqual(t, s.Y+s.H, p.Y+p.H+eps)
	}
}

func TestTreemapAreaTracksWeight(t *testing.T) {
	h := homeTree(t)
	f := treemap().Layout(h, 0, 800, 600)

	a, _ := h.Find("/home/u/A")
	b, _ := h.Find("/home/u/b.txt")
	sa := f.ShapeFor(a)
	sb := f.ShapeFor(b)
	require.NotNil(t, sa)
	require.NotNil(t, sb)

	ratio := (sa.W * sa.H) / (sb.W * sb.H)
	assert.InDelta(t, 4.0, ratio, 0.25, "A's area is about four times b's")
}

func TestTreemapCullsSubPixelChildren(t *testing.T) {
	raw := &tree.RawNode{
		Name: "r", Kind: tree.KindDirectory,
		Children: []*tree.RawNode{
			{Name: "big", Kind: tree.KindFile, Size: 1_000_000},
			{Name: "tiny", Kind: tree.KindFile, Size: 1},
		},
	}
	h := tree.Builder{Scale: scale.Linear(1)}.Build(raw)
	f := treemap().Layout(h, 0, 400, 300)

	names := make([]string, 0, len(f.Shapes))
	for i := range f.Shapes {
		names = append(names, f.Shapes[i].Name)
	}
	assert.Contains(t, names, "big")
	assert.NotContains(t, names, "tiny", "sub-pixel rects are not emitted")
}

func TestTreemapPaddingDoesNotCascade(t *testing.T) {
	// Single-child chains expose compounding: each level must inset by
	// exactly Pad+LabelH, never more.
	leafRaw := &tree.RawNode{Name: "leaf", Kind: tree.KindFile, Size: 100}
	mid := &tree.RawNode{Name: "mid", Kind: tree.KindDirectory, Children: []*tree.RawNode{leafRaw}}
	raw := &tree.RawNode{Name: "top", Kind: tree.KindDirectory, Children: []*tree.RawNode{mid}}
	h := tree.Builder{Scale: scale.Linear(1)}.Build(raw)

	cfg := DefaultTreemapConfig()
	e := &Treemap{TreemapConfig: cfg}
	f := e.Layout(h, 0, 400, 300)
	require.Len(t, f.Shapes, 3)

	top := f.Shapes[0]
	midS := f.Shapes[1]
	leaf := f.Shapes[2]

	const eps = 1.5 // rounding plus the hairline overlap
	assert.InDelta(t, top.X+cfg.Pad, midS.X, eps)
	assert.InDelta(t, top.Y+cfg.Pad+cfg.LabelH, midS.Y, eps)
	assert.InDelta(t, midS.X+cfg.Pad, leaf.X, eps)
	assert.InDelta(t, midS.Y+cfg.Pad+cfg.LabelH, leaf.Y, eps)
}

func TestTreemapEmptyRootAndHitTest(t *testing.T) {
	empty := tree.Builder{}.Build(nil)
	f := treemap().Layout(empty, 0, 400, 300)
	require.Len(t, f.Shapes, 1)

	hit := f.HitTest(200, 150)
	require.NotNil(t, hit)
	assert.Equal(t, 0, hit.NodeID)

	assert.Nil(t, f.HitTest(-5, 10), "outside the viewport hits nothing")
}

func TestTreemapHitTestFindsDeepest(t *testing.T) {
	h := homeTree(t)
	f := treemap().Layout(h, 0, 800, 600)

	a1, _ := h.Find("/home/u/A/a1.txt")
	s := f.ShapeFor(a1)
	require.NotNil(t, s)

	hit := f.HitTest(s.X+s.W/2, s.Y+s.H/2)
	require.NotNil(t, hit)
	assert.Equal(t, a1, hit.NodeID, "the leaf wins over its containers")
}
