// Package layout turns a weighted hierarchy into draw-ready geometry.
//
// Four engines share one Shape vocabulary: a radial sunburst, a squarified
// treemap, a circle pack, and an isometric city. Engines are pure functions
// of (hierarchy, root, viewport, config); they do no I/O, hold no state,
// and know nothing about pixels beyond coordinates. Painters rasterize
// Frames and the interaction layer hit-tests them through the same
// containment predicates, so what you see is exactly what you click.
package layout

import (
	"fmt"
	"math"

	"spaceview/internal/tree"
)

// Mode names a layout engine.
type Mode string

const (
	ModeSunburst   Mode = "sunburst"
	ModeTreemap    Mode = "treemap"
	ModeCirclePack Mode = "circlepack"
	ModeCity       Mode = "city"
)

// Shape is one draw-ready element. Every field a painter needs travels with
// it; which geometry fields are meaningful depends on the frame's mode.
type Shape struct {
	NodeID int `json:"node_id"`
	Parent int `json:"parent_id"` // node ID, -1 when the shape has no parent shape
	Depth  int `json:"depth"`

	Name  string    `json:"name"`
	Path  string    `json:"path,omitempty"`
	Kind  tree.Kind `json:"type"`
	Size  int64     `json:"size"`
	Color string    `json:"color,omitempty"`
	Label bool      `json:"label,omitempty"` // room for a caption

	// Rectangular geometry: treemap rects and city plan-space footprints.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	W float64 `json:"w,omitempty"`
	H float64 `json:"h,omitempty"`

	// Radial geometry: sunburst arcs sweep A0..A1 radians between radii
	// R0..R1 around (CX, CY); pack circles use CX, CY, R.
	CX float64 `json:"cx,omitempty"`
	CY float64 `json:"cy,omitempty"`
	A0 float64 `json:"a0,omitempty"`
	A1 float64 `json:"a1,omitempty"`
	R0 float64 `json:"r0,omitempty"`
	R1 float64 `json:"r1,omitempty"`
	R  float64 `json:"r,omitempty"`

	// City extrusion: grid cell plus block height in screen units.
	Col  int     `json:"col,omitempty"`
	Row  int     `json:"row,omitempty"`
	Elev float64 `json:"elev,omitempty"`
}

// CityProj is the isometric basis a city frame was projected with.
// Painters and hit tests share it through the frame.
type CityProj struct {
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	Scale   float64 `json:"scale"`
}

// Project maps a plan-space point (and elevation) to screen space.
// The 2:1 dimetric transform keeps cells diamond-shaped.
func (p CityProj) Project(u, v, elev float64) (sx, sy float64) {
	sx = p.OriginX + (u-v)*p.Scale
	sy = p.OriginY + (u+v)*p.Scale*0.5 - elev
	return
}

// Frame is one complete layout: shapes in draw order (parents before
// children, back before front), plus everything needed to map screen
// points back to nodes.
type Frame struct {
	Mode   Mode      `json:"mode"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Root   int       `json:"root_id"`
	Shapes []Shape   `json:"shapes"`
	Proj   *CityProj `json:"proj,omitempty"`

	byNode map[int]int
}

// ShapeFor returns the shape emitted for a node, nil when the node was
// culled. The index is built lazily so decoded frames work too.
func (f *Frame) ShapeFor(nodeID int) *Shape {
	if f.byNode == nil {
		f.byNode = make(map[int]int, len(f.Shapes))
		for i := range f.Shapes {
			f.byNode[f.Shapes[i].NodeID] = i
		}
	}
	i, ok := f.byNode[nodeID]
	if !ok {
		return nil
	}
	return &f.Shapes[i]
}

// HitTest finds the topmost shape containing the screen point, walking
// draw order backwards so children and foreground blocks win over their
// containers.
func (f *Frame) HitTest(x, y float64) *Shape {
	for i := len(f.Shapes) - 1; i >= 0; i-- {
		if f.Contains(&f.Shapes[i], x, y) {
			return &f.Shapes[i]
		}
	}
	return nil
}

// Contains reports whether the screen point falls inside the shape,
// interpreted per the frame's mode.
func (f *Frame) Contains(s *Shape, x, y float64) bool {
	switch f.Mode {
	case ModeSunburst:
		return arcContains(s, x, y)
	case ModeTreemap:
		return x >= s.X && x < s.X+s.W && y >= s.Y && y < s.Y+s.H
	case ModeCirclePack:
		dx, dy := x-s.CX, y-s.CY
		return dx*dx+dy*dy <= s.R*s.R
	case ModeCity:
		if f.Proj == nil {
			return false
		}
		return blockContains(*f.Proj, s, x, y)
	}
	return false
}

// Bounds returns the screen-space bounding box of a shape, used by
// rasterizers to limit sampling.
func (f *Frame) Bounds(s *Shape) (x0, y0, x1, y1 float64) {
	switch f.Mode {
	case ModeSunburst:
		return arcBounds(s)
	case ModeTreemap:
		return s.X, s.Y, s.X + s.W, s.Y + s.H
	case ModeCirclePack:
		return s.CX - s.R, s.CY - s.R, s.CX + s.R, s.CY + s.R
	case ModeCity:
		if f.Proj == nil {
			return 0, 0, 0, 0
		}
		return blockBounds(*f.Proj, s)
	}
	return 0, 0, 0, 0
}

// arcContains tests radius then angle. The root disc (R0 == 0) is a plain
// circle test so the center stays clickable as the ascend control.
func arcContains(s *Shape, x, y float64) bool {
	dx, dy := x-s.CX, y-s.CY
	rr := dx*dx + dy*dy
	if rr > s.R1*s.R1 || rr < s.R0*s.R0 {
		return false
	}
	if s.R0 == 0 && s.A1-s.A0 >= 2*math.Pi-1e-9 {
		return true
	}
	a := math.Atan2(dy, dx)
	for a < s.A0 {
		a += 2 * math.Pi
	}
	return a <= s.A1
}

func arcBounds(s *Shape) (x0, y0, x1, y1 float64) {
	// Candidate extremes: the four arc corner points plus any axis
	// crossing inside the angular span.
	xs := []float64{}
	ys := []float64{}
	add := func(a, r float64) {
		xs = append(xs, s.CX+r*math.Cos(a))
		ys = append(ys, s.CY+r*math.Sin(a))
	}
	add(s.A0, s.R0)
	add(s.A0, s.R1)
	add(s.A1, s.R0)
	add(s.A1, s.R1)
	for k := -2.0; k <= 4; k++ {
		axis := k * math.Pi / 2
		if axis >= s.A0 && axis <= s.A1 {
			add(axis, s.R1)
		}
	}
	x0, y0 = xs[0], ys[0]
	x1, y1 = xs[0], ys[0]
	for i := 1; i < len(xs); i++ {
		x0 = math.Min(x0, xs[i])
		y0 = math.Min(y0, ys[i])
		x1 = math.Max(x1, xs[i])
		y1 = math.Max(y1, ys[i])
	}
	if s.R0 == 0 { // discs cover their center
		x0 = math.Min(x0, s.CX-s.R1)
		y0 = math.Min(y0, s.CY-s.R1)
		x1 = math.Max(x1, s.CX+s.R1)
		y1 = math.Max(y1, s.CY+s.R1)
	}
	return
}

// blockContains tests the visible silhouette of an extruded cell: the top
// diamond plus the two front faces.
func blockContains(p CityProj, s *Shape, x, y float64) bool {
	u0, v0 := s.X, s.Y
	u1, v1 := s.X+s.W, s.Y+s.H

	// Invert the projection at the block's top plane; inside the plan rect
	// means inside the top diamond.
	if u, v, ok := unproject(p, x, y, s.Elev); ok && u >= u0 && u <= u1 && v >= v0 && v <= v1 {
		return true
	}

	// Front faces: between the top edge and the same edge dropped by Elev.
	// Right face spans corners (u1,v0)-(u1,v1); left face (u0,v1)-(u1,v1).
	rx0, ry0 := p.Project(u1, v0, s.Elev)
	rx1, ry1 := p.Project(u1, v1, s.Elev)
	lx0, ly0 := p.Project(u0, v1, s.Elev)
	if quadContains(rx0, ry0, rx1, ry1, s.Elev, x, y) {
		return true
	}
	if quadContains(lx0, ly0, rx1, ry1, s.Elev, x, y) {
		return true
	}
	return false
}

// quadContains tests a face parallelogram: top edge from (ax,ay) to
// (bx,by), extruded downward by elev.
func quadContains(ax, ay, bx, by, elev, x, y float64) bool {
	if elev <= 0 {
		return false
	}
	minX, maxX := math.Min(ax, bx), math.Max(ax, bx)
	if x < minX || x > maxX {
		return false
	}
	// Interpolate the top edge's y at this x.
	t := 0.0
	if maxX > minX {
		t = (x - minX) / (maxX - minX)
	}
	var topY float64
	if ax <= bx {
		topY = ay + (by-ay)*t
	} else {
		topY = by + (ay-by)*t
	}
	return y >= topY && y <= topY+elev
}

func blockBounds(p CityProj, s *Shape) (x0, y0, x1, y1 float64) {
	u0, v0 := s.X, s.Y
	u1, v1 := s.X+s.W, s.Y+s.H
	pts := [][2]float64{}
	for _, e := range []float64{s.Elev, 0} {
		for _, uv := range [][2]float64{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}} {
			px, py := p.Project(uv[0], uv[1], e)
			pts = append(pts, [2]float64{px, py})
		}
	}
	x0, y0 = pts[0][0], pts[0][1]
	x1, y1 = x0, y0
	for _, pt := range pts[1:] {
		x0 = math.Min(x0, pt[0])
		y0 = math.Min(y0, pt[1])
		x1 = math.Max(x1, pt[0])
		y1 = math.Max(y1, pt[1])
	}
	return
}

// unproject inverts Project at a fixed elevation.
func unproject(p CityProj, sx, sy, elev float64) (u, v float64, ok bool) {
	if p.Scale == 0 {
		return 0, 0, false
	}
	a := (sx - p.OriginX) / p.Scale
	b := (sy - p.OriginY + elev) * 2 / p.Scale
	return (a + b) / 2, (b - a) / 2, true
}

// share divides a child's aggregate weight by the sibling total, falling
// back to equal shares when the total is zero so degenerate trees still
// render structure.
func share(child, total float64, n int) float64 {
	if total > 0 {
		return child / total
	}
	if n <= 0 {
		return 0
	}
	return 1 / float64(n)
}

// Engine lays out one mode.
type Engine interface {
	Mode() Mode
	Layout(h *tree.Hierarchy, root int, w, ht float64) *Frame
}

// Config bundles the tunables for all engines; the zero value is unusable,
// start from DefaultConfig.
type Config struct {
	Sunburst SunburstConfig `yaml:"sunburst"`
	Treemap  TreemapConfig  `yaml:"treemap"`
	Pack     PackConfig     `yaml:"pack"`
	City     CityConfig     `yaml:"city"`
}

// DefaultConfig returns the tuned defaults every shell starts from.
func DefaultConfig() Config {
	return Config{
		Sunburst: DefaultSunburstConfig(),
		Treemap:  DefaultTreemapConfig(),
		Pack:     DefaultPackConfig(),
		City:     DefaultCityConfig(),
	}
}

// The dispatch table. Registering here is all a new mode needs.
var engines = map[Mode]func(Config) Engine{
	ModeSunburst:   func(c Config) Engine { return &Sunburst{SunburstConfig: c.Sunburst} },
	ModeTreemap:    func(c Config) Engine { return &Treemap{TreemapConfig: c.Treemap} },
	ModeCirclePack: func(c Config) Engine { return &CirclePack{PackConfig: c.Pack} },
	ModeCity:       func(c Config) Engine { return &City{CityConfig: c.City} },
}

// ForMode builds the engine for a mode.
func ForMode(m Mode, cfg Config) (Engine, error) {
	mk, ok := engines[m]
	if !ok {
		return nil, fmt.Errorf("layout: unknown mode %q", m)
	}
	return mk(cfg), nil
}

// Modes lists the registered modes in the UI's cycling order.
func Modes() []Mode {
	return []Mode{ModeSunburst, ModeTreemap, ModeCirclePack, ModeCity}
}

// newShape copies the node fields every engine emits the same way.
func newShape(n *tree.Node) Shape {
	return Shape{
		NodeID: n.ID,
		Parent: n.Parent,
		Depth:  n.Depth,
		Name:   n.Name,
		Path:   n.Path,
		Kind:   n.Kind,
		Size:   n.Size,
		Color:  n.Color,
	}
}
