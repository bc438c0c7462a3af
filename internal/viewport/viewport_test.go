package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyAndInvertAreInverses(t *testing.T) {
	c := New()
	c.Scale = 2.5
	c.OffsetX = -37
	c.OffsetY = 12

	sx, sy := c.Apply(123.4, -56.7)
	x, y := c.Invert(sx, sy)
	assert.InDelta(t, 123.4, x, 1e-9)
	assert.InDelta(t, -56.7, y, 1e-9)
}

func TestZoomAtKeepsAnchorPinned(t *testing.T) {
	c := New()
	c.Pan(40, -20)

	const ax, ay = 310.0, 205.0
	wx, wy := c.Invert(ax, ay)

	c.ZoomAt(ax, ay, 1.7)
	sx, sy := c.Apply(wx, wy)
	assert.InDelta(t, ax, sx, 1e-9, "the layout point under the cursor stays put")
	assert.InDelta(t, ay, sy, 1e-9)

	c.ZoomAt(ax, ay, 0.5)
	sx, sy = c.Apply(wx, wy)
	assert.InDelta(t, ax, sx, 1e-9)
	assert.InDelta(t, ay, sy, 1e-9)
}

func TestZoomSaturatesAtTheBounds(t *testing.T) {
	c := New()
	for i := 0; i < 20; i++ {
		c.ZoomAt(100, 100, 2)
	}
	assert.Equal(t, MaxScale, c.Scale)

	for i := 0; i < 40; i++ {
		c.ZoomAt(100, 100, 0.5)
	}
	assert.Equal(t, MinScale, c.Scale)
}

func TestPanAccumulates(t *testing.T) {
	c := New()
	c.Pan(10, 5)
	c.Pan(-3, 7)
	assert.Equal(t, 7.0, c.OffsetX)
	assert.Equal(t, 12.0, c.OffsetY)

	c.Reset()
	assert.Equal(t, 1.0, c.Scale)
	assert.Equal(t, 0.0, c.OffsetX)
	assert.Equal(t, 0.0, c.OffsetY)
}

func TestFitCentersContent(t *testing.T) {
	c := New()
	c.Fit(800, 600, 400, 400)

	assert.InDelta(t, 0.5, c.Scale, 1e-9, "limited by width")
	// 600·0.5 = 300 leaves 100px split top and bottom.
	assert.InDelta(t, 0.0, c.OffsetX, 1e-9)
	assert.InDelta(t, 50.0, c.OffsetY, 1e-9)

	// Corners land inside the view.
	sx, sy := c.Apply(800, 600)
	assert.LessOrEqual(t, sx, 400.0)
	assert.LessOrEqual(t, sy, 400.0)

	c.Fit(0, 0, 400, 400)
	assert.Equal(t, 1.0, c.Scale, "degenerate content falls back to identity")
}
