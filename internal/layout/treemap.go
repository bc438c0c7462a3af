package layout

import (
	"math"

	"spaceview/internal/tree"
)

// TreemapConfig tunes the squarified engine.
type TreemapConfig struct {
	// Pad insets children from their parent on all sides. It is the same
	// at every level; nesting does not compound it.
	Pad float64 `yaml:"pad"`
	// LabelH reserves a title strip at the top of directory rects.
	LabelH float64 `yaml:"label_h"`
	// MinSidePx culls rects whose rounded width or height lands under it;
	// their area stays blank so siblings keep their proportions.
	MinSidePx float64 `yaml:"min_side_px"`
	// MaxDepth stops nesting; 0 means the min-side cull is the only limit.
	MaxDepth int `yaml:"max_depth"`
}

// DefaultTreemapConfig returns the tuned defaults.
func DefaultTreemapConfig() TreemapConfig {
	return TreemapConfig{Pad: 5, LabelH: 10, MinSidePx: 4, MaxDepth: 0}
}

// Treemap tiles each directory's children into its interior, squarified:
// rows are cut along the long side and grow greedily while the worst
// aspect ratio keeps improving.
type Treemap struct {
	TreemapConfig
}

func (*Treemap) Mode() Mode { return ModeTreemap }

// tmFrame is one pending container on the iterative traversal stack.
type tmFrame struct {
	id   int
	x, y float64
	w, h float64
}

// Layout tiles the subtree rooted at root into a w×ht rectangle.
// Behavior that matters:
//   - ALL children contribute to area scaling, so tiny items leave
//     whitespace instead of distorting their siblings,
//   - a child is only emitted when its final rounded width AND height
//     reach MinSidePx,
//   - rows that would render thinner than MinSidePx are skipped whole,
//     leaving a blank band.
func (e *Treemap) Layout(h *tree.Hierarchy, root int, w, ht float64) *Frame {
	f := &Frame{Mode: ModeTreemap, Width: w, Height: ht, Root: root}
	rn := h.Node(root)
	if rn == nil || w <= 0 || ht <= 0 {
		return f
	}

	f.Shapes = make([]Shape, 0, 4096)
	st := append(make([]tmFrame, 0, 128), tmFrame{id: root, x: 0, y: 0, w: w, h: ht})

	for len(st) > 0 {
		fr := st[len(st)-1]
		st = st[:len(st)-1]
		n := h.Node(fr.id)

		e.emit(f, n, fr.x, fr.y, fr.w, fr.h)
		if n.IsLeaf() {
			continue
		}
		if e.MaxDepth > 0 && n.Depth-rn.Depth >= e.MaxDepth {
			continue
		}

		// Interior available to children: padding plus the title strip.
		ax := fr.x + e.Pad
		ay := fr.y + e.Pad + e.LabelH
		aw := fr.w - 2*e.Pad
		ah := fr.h - 2*e.Pad - e.LabelH
		if aw < e.MinSidePx || ah < e.MinSidePx {
			continue
		}

		total := n.AggregateWeight
		interior := aw * ah
		ids := make([]int, 0, len(n.Children))
		areas := make([]float64, 0, len(n.Children))
		for _, cid := range n.Children {
			a := share(h.Node(cid).AggregateWeight, total, len(n.Children)) * interior
			if a <= 0 {
				continue
			}
			ids = append(ids, cid)
			areas = append(areas, a)
		}
		if len(ids) == 0 {
			continue
		}
		e.squarify(h, ids, areas, ax, ay, aw, ah, f, &st)
	}
	return f
}

// emit appends a shape snapped to integer pixels for crisp cell borders.
func (e *Treemap) emit(f *Frame, n *tree.Node, x, y, w, h float64) {
	x1 := math.Round(x)
	y1 := math.Round(y)
	x2 := math.Round(x + w)
	y2 := math.Round(y + h)

	s := newShape(n)
	s.X, s.Y = x1, y1
	s.W = math.Max(0, x2-x1)
	s.H = math.Max(0, y2-y1)
	s.Label = s.W >= 40 && s.H >= e.LabelH+4
	f.Shapes = append(f.Shapes, s)
}

// roundedWH previews the final pixel width/height the same way emit rounds.
func roundedWH(x, y, w, h float64) (rw, rh float64) {
	x1 := math.Round(x)
	y1 := math.Round(y)
	x2 := math.Round(x + w)
	y2 := math.Round(y + h)
	return math.Max(0, x2-x1), math.Max(0, y2-y1)
}

// squarify lays ids with the given areas into (x,y,w,h), pushing emitted
// directories onto the traversal stack for their own interior pass.
func (e *Treemap) squarify(h *tree.Hierarchy, ids []int, areas []float64, x, y, w, ht float64, f *Frame, st *[]tmFrame) {
	if len(ids) == 0 || w <= 0 || ht <= 0 {
		return
	}

	i := 0
	cx, cy, cw, ch := x, y, w, ht

	for i < len(ids) {
		rowStart := i
		rowSum := 0.0
		rowMin := math.MaxFloat64
		rowMax := 0.0

		// Rows run along the long side; the short side is the thickness.
		L := math.Max(cw, ch)

		// Grow the row greedily until the worst aspect ratio would regress.
		for i < len(ids) {
			a := areas[i]
			sNew := rowSum + a
			minNew := math.Min(rowMin, a)
			maxNew := math.Max(rowMax, a)
			if rowSum > 0 && worseAfter(rowSum, rowMin, rowMax, sNew, minNew, maxNew, L) {
				break
			}
			rowSum, rowMin, rowMax = sNew, minNew, maxNew
			i++
		}
		if rowSum <= 0 {
			break
		}

		horizontal := cw >= ch
		thickness := rowSum / L
		if math.Floor(thickness) < e.MinSidePx {
			// Too thin to draw: consume the band as whitespace.
			if horizontal {
				cy += thickness
				ch -= thickness
			} else {
				cx += thickness
				cw -= thickness
			}
			continue
		}

		if horizontal {
			e.layoutRow(h, ids[rowStart:i], areas[rowStart:i], cx, cy, cw, thickness, f, st, true)
			cy += thickness
			ch -= thickness
		} else {
			e.layoutRow(h, ids[rowStart:i], areas[rowStart:i], cx, cy, thickness, ch, f, st, false)
			cx += thickness
			cw -= thickness
		}

		if cw < e.MinSidePx || ch < e.MinSidePx {
			break
		}
	}
}

// worseAfter compares the row's worst aspect ratio before and after adding
// the next item.
func worseAfter(s, amin, amax, sNew, aminNew, amaxNew, L float64) bool {
	T := s / L
	if T <= 0 || amin <= 0 {
		return false
	}
	worstBefore := math.Max(amax/(T*T), (T*T)/amin)

	Tn := sNew / L
	if Tn <= 0 || aminNew <= 0 {
		return false
	}
	worstAfter := math.Max(amaxNew/(Tn*Tn), (Tn*Tn)/aminNew)

	return worstAfter > worstBefore
}

// layoutRow places one row (or column) of boxes. Only boxes whose rounded
// sides reach MinSidePx are emitted; invisible ones still advance the
// offset so their area reads as blank space.
func (e *Treemap) layoutRow(h *tree.Hierarchy, ids []int, areas []float64, x, y, w, ht float64, f *Frame, st *[]tmFrame, horizontal bool) {
	const negPad = -1.0 // slight overlap hides hairline gaps after rounding

	total := 0.0
	for _, a := range areas {
		total += a
	}
	if total <= 0 {
		return
	}

	length := w
	if !horizontal {
		length = ht
	}
	thickness := total / length

	offset := 0.0
	for k, id := range ids {
		breadth := areas[k] / thickness

		var bx, by, bw, bh float64
		if horizontal {
			bx = x + offset
			by = y
			bw = breadth - negPad
			bh = thickness - negPad
		} else {
			bx = x
			by = y + offset
			bw = thickness - negPad
			bh = breadth - negPad
		}

		rw, rh := roundedWH(bx+0.5*negPad, by+0.5*negPad, bw, bh)
		if rw >= e.MinSidePx && rh >= e.MinSidePx {
			n := h.Node(id)
			e.emit(f, n, bx+0.5*negPad, by+0.5*negPad, bw, bh)
			if !n.IsLeaf() {
				*st = append(*st, tmFrame{id: id, x: bx + 0.5*negPad, y: by + 0.5*negPad, w: bw, h: bh})
			}
		}
		offset += breadth
	}
}
