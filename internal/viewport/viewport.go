// Package viewport maps between layout coordinates and screen pixels.
//
// Layout engines work in a fixed canvas; shells pan and zoom over it. The
// controller owns that affine transform: screen = layout·scale + offset.
// Pointer events run through Invert before hit-testing so the resolver
// never learns the viewport exists.
package viewport

// Scale bounds. Below a quarter the scene is a smudge, above eight the
// hairline padding between shapes turns into canyons.
const (
	MinScale = 0.25
	MaxScale = 8.0
)

// Controller holds the current pan/zoom state for one scene.
type Controller struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// New returns an identity viewport.
func New() *Controller {
	return &Controller{Scale: 1}
}

// Reset snaps back to the identity transform.
func (c *Controller) Reset() {
	c.Scale = 1
	c.OffsetX = 0
	c.OffsetY = 0
}

// Apply maps a layout point to screen space.
func (c *Controller) Apply(x, y float64) (float64, float64) {
	return x*c.Scale + c.OffsetX, y*c.Scale + c.OffsetY
}

// Invert maps a screen point back into layout space.
func (c *Controller) Invert(sx, sy float64) (float64, float64) {
	return (sx - c.OffsetX) / c.Scale, (sy - c.OffsetY) / c.Scale
}

// Pan shifts the view by a screen-space delta.
func (c *Controller) Pan(dx, dy float64) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// ZoomAt scales by factor while keeping the layout point under the given
// screen position pinned there, so wheel-zoom dives toward the cursor.
// The factor is absorbed into the clamped range; zooming past a bound
// quietly saturates.
func (c *Controller) ZoomAt(sx, sy, factor float64) {
	wx, wy := c.Invert(sx, sy)
	c.Scale = clampScale(c.Scale * factor)
	c.OffsetX = sx - wx*c.Scale
	c.OffsetY = sy - wy*c.Scale
}

// Fit chooses the largest scale that shows the whole content box inside
// the view, centered. Oversized views leave symmetric margins.
func (c *Controller) Fit(contentW, contentH, viewW, viewH float64) {
	if contentW <= 0 || contentH <= 0 {
		c.Reset()
		return
	}
	s := viewW / contentW
	if vs := viewH / contentH; vs < s {
		s = vs
	}
	c.Scale = clampScale(s)
	c.OffsetX = (viewW - contentW*c.Scale) / 2
	c.OffsetY = (viewH - contentH*c.Scale) / 2
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
