package layout

import (
	"math"

	"spaceview/internal/tree"
)

// SunburstConfig tunes the radial engine.
type SunburstConfig struct {
	// MinAngleDeg culls arcs (and their subtrees) spanning less than this;
	// the share stays blank so siblings keep their true proportions.
	MinAngleDeg float64 `yaml:"min_angle_deg"`
	// LabelMinAngleDeg is the span labels need to be worth painting.
	LabelMinAngleDeg float64 `yaml:"label_min_angle_deg"`
	// MaxDepth limits the ring count below the center; 0 means unlimited.
	MaxDepth int `yaml:"max_depth"`
	// BandCap stops rings from growing fat on shallow trees.
	BandCap float64 `yaml:"band_cap"`
	// Margin keeps the outer ring off the viewport edge.
	Margin float64 `yaml:"margin"`
}

// DefaultSunburstConfig returns the tuned defaults.
func DefaultSunburstConfig() SunburstConfig {
	return SunburstConfig{
		MinAngleDeg:      0.1,
		LabelMinAngleDeg: 5,
		MaxDepth:         6,
		BandCap:          72,
		Margin:           2,
	}
}

// Sunburst lays depth rings around a center disc. The disc is the layout
// root and doubles as the ascend control; each child sweeps its aggregate
// share of its parent's angle.
type Sunburst struct {
	SunburstConfig
}

func (*Sunburst) Mode() Mode { return ModeSunburst }

type sunFrame struct {
	id     int
	a0, a1 float64
	rel    int
}

func (e *Sunburst) Layout(h *tree.Hierarchy, root int, w, ht float64) *Frame {
	f := &Frame{Mode: ModeSunburst, Width: w, Height: ht, Root: root}
	rn := h.Node(root)
	if rn == nil || w <= 0 || ht <= 0 {
		return f
	}

	cx, cy := w/2, ht/2
	usable := math.Min(w, ht)/2 - e.Margin
	if usable <= 0 {
		return f
	}

	// Ring count: how deep the subtree actually goes, clamped to MaxDepth.
	maxRel := 0
	h.Walk(root, func(n *tree.Node) bool {
		rel := n.Depth - rn.Depth
		if rel > maxRel {
			maxRel = rel
		}
		return e.MaxDepth <= 0 || rel < e.MaxDepth
	})
	if e.MaxDepth > 0 && maxRel > e.MaxDepth {
		maxRel = e.MaxDepth
	}

	band := usable / float64(maxRel+1)
	if band > e.BandCap {
		band = e.BandCap
	}

	minAngle := e.MinAngleDeg * math.Pi / 180
	labelAngle := e.LabelMinAngleDeg * math.Pi / 180
	const start = -math.Pi / 2 // twelve o'clock

	f.Shapes = make([]Shape, 0, 1024)
	stack := append(make([]sunFrame, 0, 128), sunFrame{id: root, a0: start, a1: start + 2*math.Pi})

	for len(stack) > 0 {
		sf := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := h.Node(sf.id)

		s := newShape(n)
		s.CX, s.CY = cx, cy
		s.A0, s.A1 = sf.a0, sf.a1
		s.R0 = float64(sf.rel) * band
		s.R1 = float64(sf.rel+1) * band
		if sf.rel == 0 {
			s.R0 = 0 // center disc
			s.Label = true
		} else {
			s.Label = sf.a1-sf.a0 >= labelAngle
		}
		f.Shapes = append(f.Shapes, s)

		if e.MaxDepth > 0 && sf.rel >= e.MaxDepth {
			continue
		}

		// Sweep children clockwise from the parent's start angle. Culled
		// arcs still advance the cursor, leaving their share blank.
		total := n.AggregateWeight
		span := sf.a1 - sf.a0
		cursor := sf.a0
		pushed := 0
		for _, cid := range n.Children {
			c := h.Node(cid)
			cs := share(c.AggregateWeight, total, len(n.Children)) * span
			if cs >= minAngle {
				stack = append(stack, sunFrame{id: cid, a0: cursor, a1: cursor + cs, rel: sf.rel + 1})
				pushed++
			}
			cursor += cs
		}
		// Pushed order reversed on the stack restores sibling order on pop,
		// keeping draw order parent-then-children-left-to-right.
		reverseSun(stack[len(stack)-pushed:])
	}
	return f
}

func reverseSun(s []sunFrame) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
