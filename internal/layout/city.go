package layout

import (
	"math"
	"sort"

	"spaceview/internal/tree"
)

// CityConfig tunes the isometric engine. The values are visual calibration,
// not semantics; change them freely.
type CityConfig struct {
	// GapFrac is the share of each grid cell left as street between blocks.
	GapFrac float64 `yaml:"gap_frac"`
	// HeightExp is the power applied to byte size before normalizing
	// tower heights. Below 1 so small files stay visible next to huge ones.
	HeightExp float64 `yaml:"height_exp"`
	// MaxBlockH is the tallest tower in screen pixels.
	MaxBlockH float64 `yaml:"max_block_h"`
	// MinBlockH keeps even empty files extruded enough to click.
	MinBlockH float64 `yaml:"min_block_h"`
	// PlazaH is the fixed height of directory blocks.
	PlazaH float64 `yaml:"plaza_h"`
	// Margin keeps the scene off the viewport edge.
	Margin float64 `yaml:"margin"`
}

// DefaultCityConfig returns the tuned defaults.
func DefaultCityConfig() CityConfig {
	return CityConfig{GapFrac: 0.12, HeightExp: 0.35, MaxBlockH: 120, MinBlockH: 2, PlazaH: 8, Margin: 8}
}

// City lays the current node's children on a square-ish grid and extrudes
// each into an isometric block. Unlike the nesting modes it shows one
// level at a time: towers are files sized by actual bytes, flat plazas are
// directories to walk into. The ground plane is the root itself.
type City struct {
	CityConfig
}

func (*City) Mode() Mode { return ModeCity }

func (e *City) Layout(h *tree.Hierarchy, root int, w, ht float64) *Frame {
	f := &Frame{Mode: ModeCity, Width: w, Height: ht, Root: root}
	rn := h.Node(root)
	if rn == nil || w <= 0 || ht <= 0 {
		return f
	}

	n := len(rn.Children)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	if cols < 1 {
		cols = 1
	}
	rows := (n + cols - 1) / cols
	if rows < 1 {
		rows = 1
	}

	// Tower heights first; the projection must leave room for the tallest.
	elevs := make([]float64, n)
	var maxSize int64
	for _, cid := range rn.Children {
		if c := h.Node(cid); c.Kind != tree.KindDirectory && c.Size > maxSize {
			maxSize = c.Size
		}
	}
	maxElev := e.PlazaH
	norm := math.Pow(float64(maxSize), e.HeightExp)
	for i, cid := range rn.Children {
		c := h.Node(cid)
		if c.Kind == tree.KindDirectory {
			elevs[i] = e.PlazaH
			continue
		}
		ev := e.MinBlockH
		if norm > 0 && c.Size > 0 {
			ev = e.MaxBlockH * math.Pow(float64(c.Size), e.HeightExp) / norm
			if ev < e.MinBlockH {
				ev = e.MinBlockH
			}
		}
		elevs[i] = ev
		if ev > maxElev {
			maxElev = ev
		}
	}

	// Fit the diamond footprint plus the tallest tower into the viewport.
	span := float64(cols + rows)
	kw := (w - 2*e.Margin) / span
	kh := (ht - 2*e.Margin - maxElev) * 2 / span
	k := math.Min(kw, kh)
	if k <= 0 {
		return f
	}
	proj := CityProj{
		OriginX: w/2 - (float64(cols-rows)/2)*k,
		OriginY: e.Margin + maxElev,
		Scale:   k,
	}
	f.Proj = &proj

	f.Shapes = make([]Shape, 0, n+1)

	// Ground plane: the root node under everything, the ascend target.
	ground := newShape(rn)
	ground.X, ground.Y = 0, 0
	ground.W, ground.H = float64(cols), float64(rows)
	ground.Elev = 0
	ground.Label = true
	f.Shapes = append(f.Shapes, ground)

	// Blocks in back-to-front order so painters can draw the slice as-is.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, ra := order[a]%cols, order[a]/cols
		cb, rb := order[b]%cols, order[b]/cols
		if ca+ra != cb+rb {
			return ca+ra < cb+rb
		}
		return ca < cb
	})

	inset := e.GapFrac / 2
	labelOK := 2*k >= 30
	for _, i := range order {
		c := h.Node(rn.Children[i])
		col, row := i%cols, i/cols

		s := newShape(c)
		s.Col, s.Row = col, row
		s.X = float64(col) + inset
		s.Y = float64(row) + inset
		s.W = 1 - e.GapFrac
		s.H = 1 - e.GapFrac
		s.Elev = elevs[i]
		s.Label = labelOK
		f.Shapes = append(f.Shapes, s)
	}
	return f
}
