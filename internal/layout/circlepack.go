package layout

import (
	"math"

	"spaceview/internal/tree"
)

// PackConfig tunes the circle-pack engine.
type PackConfig struct {
	// PadFrac is the fraction of a parent's radius kept clear inside it.
	PadFrac float64 `yaml:"pad_frac"`
	// MinRadiusPx culls circles smaller than this after scaling.
	MinRadiusPx float64 `yaml:"min_radius_px"`
	// MaxDepth limits nesting below the root circle; 0 means unlimited.
	MaxDepth int `yaml:"max_depth"`
	// RepulseIters bounds the overlap-relaxation passes.
	RepulseIters int `yaml:"repulse_iters"`
	// Margin keeps the root circle off the viewport edge.
	Margin float64 `yaml:"margin"`
}

// DefaultPackConfig returns the tuned defaults.
func DefaultPackConfig() PackConfig {
	return PackConfig{PadFrac: 0.08, MinRadiusPx: 2, MaxDepth: 5, RepulseIters: 24, Margin: 2}
}

// CirclePack nests sibling circles inside their parent. Radii grow with
// the square root of weight so AREA tracks weight; siblings are placed
// front-chain (each tangent to the two most recently placed), relaxed
// apart where they still overlap, then scaled as a group into the parent.
type CirclePack struct {
	PackConfig
}

func (*CirclePack) Mode() Mode { return ModeCirclePack }

type packed struct {
	id      int
	x, y, r float64
}

func (e *CirclePack) Layout(h *tree.Hierarchy, root int, w, ht float64) *Frame {
	f := &Frame{Mode: ModeCirclePack, Width: w, Height: ht, Root: root}
	rn := h.Node(root)
	if rn == nil || w <= 0 || ht <= 0 {
		return f
	}

	R := math.Min(w, ht)/2 - e.Margin
	if R <= 0 {
		return f
	}

	f.Shapes = make([]Shape, 0, 1024)

	type job struct {
		id      int
		x, y, r float64
		rel     int
	}
	stack := append(make([]job, 0, 128), job{id: root, x: w / 2, y: ht / 2, r: R})

	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := h.Node(j.id)

		s := newShape(n)
		s.CX, s.CY, s.R = j.x, j.y, j.r
		s.Label = j.r >= 16
		f.Shapes = append(f.Shapes, s)

		if n.IsLeaf() || (e.MaxDepth > 0 && j.rel >= e.MaxDepth) {
			continue
		}

		kids := e.packChildren(h, n, j.x, j.y, j.r*(1-e.PadFrac))
		// Reverse push keeps sibling draw order on this LIFO stack.
		for i := len(kids) - 1; i >= 0; i-- {
			k := kids[i]
			if k.r < e.MinRadiusPx {
				continue // culled; its spot simply stays empty
			}
			stack = append(stack, job{id: k.id, x: k.x, y: k.y, r: k.r, rel: j.rel + 1})
		}
	}
	return f
}

// packChildren arranges n's children inside the circle (cx, cy, R) and
// returns them in sibling order with final centers and radii.
func (e *CirclePack) packChildren(h *tree.Hierarchy, n *tree.Node, cx, cy, R float64) []packed {
	kids := n.Children
	if len(kids) == 0 || R <= 0 {
		return nil
	}

	// Unscaled radii: sqrt of weight share, equal when weights vanish.
	out := make([]packed, len(kids))
	total := n.AggregateWeight
	for i, cid := range kids {
		c := h.Node(cid)
		out[i] = packed{id: cid, r: math.Sqrt(share(c.AggregateWeight, total, len(kids)))}
	}

	e.place(out)
	e.repulse(out)

	// Enclose the group and scale it into the parent interior.
	var gx, gy, area float64
	for _, p := range out {
		w := p.r * p.r
		gx += p.x * w
		gy += p.y * w
		area += w
	}
	if area > 0 {
		gx /= area
		gy /= area
	}
	enclose := 0.0
	for _, p := range out {
		d := math.Hypot(p.x-gx, p.y-gy) + p.r
		if d > enclose {
			enclose = d
		}
	}
	if enclose <= 0 {
		enclose = 1
	}
	k := R / enclose
	for i := range out {
		out[i].x = cx + (out[i].x-gx)*k
		out[i].y = cy + (out[i].y-gy)*k
		out[i].r *= k
	}
	return out
}

// place runs the front chain: first at the origin, second beside it, each
// later circle tangent to the two placed just before it, preferring the
// intersection farther from the origin so the cluster spirals outward.
func (e *CirclePack) place(cs []packed) {
	if len(cs) == 0 {
		return
	}
	cs[0].x, cs[0].y = 0, 0
	if len(cs) == 1 {
		return
	}
	cs[1].x, cs[1].y = cs[0].r+cs[1].r, 0

	for i := 2; i < len(cs); i++ {
		a, b := cs[i-1], cs[i-2]
		x, y, ok := tangentPoint(a.x, a.y, a.r+cs[i].r, b.x, b.y, b.r+cs[i].r)
		if !ok {
			// No meeting point (radius gap too large): continue outward
			// from the last circle instead.
			d := math.Hypot(a.x, a.y)
			ux, uy := 1.0, 0.0
			if d > 0 {
				ux, uy = a.x/d, a.y/d
			}
			x = a.x + ux*(a.r+cs[i].r)
			y = a.y + uy*(a.r+cs[i].r)
		}
		cs[i].x, cs[i].y = x, y
	}
}

// tangentPoint intersects two circles of radius r1 around (x1,y1) and r2
// around (x2,y2), returning the solution farther from the origin.
func tangentPoint(x1, y1, r1, x2, y2, r2 float64) (float64, float64, bool) {
	dx, dy := x2-x1, y2-y1
	d := math.Hypot(dx, dy)
	if d == 0 || d > r1+r2 || d < math.Abs(r1-r2) {
		return 0, 0, false
	}
	a := (d*d + r1*r1 - r2*r2) / (2 * d)
	h2 := r1*r1 - a*a
	if h2 < 0 {
		return 0, 0, false
	}
	hh := math.Sqrt(h2)
	mx := x1 + a*dx/d
	my := y1 + a*dy/d
	px1 := mx + hh*dy/d
	py1 := my - hh*dx/d
	px2 := mx - hh*dy/d
	py2 := my + hh*dx/d
	if px1*px1+py1*py1 >= px2*px2+py2*py2 {
		return px1, py1, true
	}
	return px2, py2, true
}

// repulse separates residual overlaps pairwise. Displacement is shared
// inversely to radius so big circles anchor the cluster; sibling order
// never changes, only positions.
func (e *CirclePack) repulse(cs []packed) {
	for iter := 0; iter < e.RepulseIters; iter++ {
		moved := false
		for i := 0; i < len(cs); i++ {
			for j := i + 1; j < len(cs); j++ {
				dx := cs[j].x - cs[i].x
				dy := cs[j].y - cs[i].y
				d := math.Hypot(dx, dy)
				overlap := cs[i].r + cs[j].r - d
				if overlap <= 1e-9 {
					continue
				}
				moved = true
				var ux, uy float64
				if d > 1e-12 {
					ux, uy = dx/d, dy/d
				} else {
					// Coincident centers: split along x, offset by index
					// parity for determinism.
					ux, uy = 1, 0
				}
				wi := cs[j].r / (cs[i].r + cs[j].r)
				wj := 1 - wi
				cs[i].x -= ux * overlap * wi
				cs[i].y -= uy * overlap * wi
				cs[j].x += ux * overlap * wj
				cs[j].y += uy * overlap * wj
			}
		}
		if !moved {
			break
		}
	}
}
