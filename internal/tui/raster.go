package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"spaceview/internal/layout"
	"spaceview/internal/palette"
	"spaceview/internal/viewport"
)

// A terminal cell is roughly twice as tall as it is wide, so the canvas
// works in half-row units: one unit across, two units down per cell. Frames
// laid out at (cols, rows*2) come out with square proportions on screen.
const cellAspect = 2.0

// cell is one terminal cell of the chart. shape indexes the rasterized
// shape slice; -1 means background. ch carries a label rune when a caption
// runs through the cell.
type cell struct {
	shape int
	ch    rune
}

// canvas is the rasterized chart, row-major.
type canvas struct {
	cols, rows int
	cells      []cell
}

func (cv *canvas) at(col, row int) *cell {
	return &cv.cells[row*cv.cols+col]
}

// rasterize paints shapes into a cols×rows cell grid. Shapes arrive in
// draw order, so later ones overwrite earlier ones exactly as a pixel
// painter would layer them. The geometry in shapes may be mid-animation;
// f supplies the mode and projection that give it meaning. Each cell is
// decided by sampling its center through the same containment predicate
// the hit tester uses.
func rasterize(f *layout.Frame, shapes []layout.Shape, vp *viewport.Controller, cols, rows int) *canvas {
	cv := &canvas{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
	for i := range cv.cells {
		cv.cells[i].shape = -1
	}
	if cols <= 0 || rows <= 0 {
		return cv
	}

	for i := range shapes {
		s := &shapes[i]
		x0, y0, x1, y1 := f.Bounds(s)
		sx0, sy0 := vp.Apply(x0, y0)
		sx1, sy1 := vp.Apply(x1, y1)

		c0 := clamp(int(math.Floor(sx0)), 0, cols)
		c1 := clamp(int(math.Ceil(sx1))+1, 0, cols)
		r0 := clamp(int(math.Floor(sy0/cellAspect)), 0, rows)
		r1 := clamp(int(math.Ceil(sy1/cellAspect))+1, 0, rows)

		for row := r0; row < r1; row++ {
			for col := c0; col < c1; col++ {
				lx, ly := vp.Invert(float64(col)+0.5, float64(row)*cellAspect+1)
				if f.Contains(s, lx, ly) {
					c := cv.at(col, row)
					c.shape = i
					c.ch = 0
				}
			}
		}
	}

	cv.caption(shapes)
	return cv
}

// caption writes shape names into cells the shape actually owns. A label
// lands on the row through the shape's visual center and is dropped when
// fewer than its rune count of owned cells line up there.
func (cv *canvas) caption(shapes []layout.Shape) {
	for i := range shapes {
		s := &shapes[i]
		if !s.Label || s.Name == "" {
			continue
		}
		row, left, width := cv.span(i)
		if width < 2 {
			continue
		}
		name := []rune(s.Name)
		if len(name) > width {
			if width < 4 {
				continue
			}
			name = append(name[:width-1], '…')
		}
		start := left + (width-len(name))/2
		for j, r := range name {
			cv.at(start+j, row).ch = r
		}
	}
}

// span finds the widest contiguous run of cells owned by shape i on the
// row through the middle of its owned region.
func (cv *canvas) span(i int) (row, left, width int) {
	top, bottom := cv.rows, -1
	for r := 0; r < cv.rows; r++ {
		for c := 0; c < cv.cols; c++ {
			if cv.at(c, r).shape == i {
				if r < top {
					top = r
				}
				bottom = r
				break
			}
		}
	}
	if bottom < 0 {
		return 0, 0, 0
	}
	row = (top + bottom) / 2

	best, bestLeft, run, runLeft := 0, 0, 0, 0
	for c := 0; c < cv.cols; c++ {
		if cv.at(c, row).shape == i {
			if run == 0 {
				runLeft = c
			}
			run++
			if run > best {
				best, bestLeft = run, runLeft
			}
		} else {
			run = 0
		}
	}
	return row, bestLeft, best
}

// render turns the grid into styled terminal rows. Adjacent cells with the
// same appearance collapse into one styled run to keep the escape-sequence
// volume down. Cells of the hovered node are brightened in place.
func (cv *canvas) render(shapes []layout.Shape, hoveredNode int) string {
	var b strings.Builder
	b.Grow(cv.cols * cv.rows * 4)

	for row := 0; row < cv.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		runBg := ""
		var run strings.Builder
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runBg == "" {
				b.WriteString(run.String())
			} else {
				style := lipgloss.NewStyle().
					Background(lipgloss.Color(runBg)).
					Foreground(lipgloss.Color(captionColor(runBg)))
				b.WriteString(style.Render(run.String()))
			}
			run.Reset()
		}

		for col := 0; col < cv.cols; col++ {
			c := cv.at(col, row)
			bg := ""
			if c.shape >= 0 {
				bg = shapes[c.shape].Color
				if shapes[c.shape].NodeID == hoveredNode {
					bg = palette.Brighten(bg, 0.25)
				}
			}
			if bg != runBg {
				flush()
				runBg = bg
			}
			if c.ch != 0 {
				run.WriteRune(c.ch)
			} else {
				run.WriteByte(' ')
			}
		}
		flush()
	}
	return b.String()
}

// captionColor picks a readable label ink for a fill color.
func captionColor(hex string) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "#e8e8f0"
	}
	if l, _, _ := c.Lab(); l > 0.62 {
		return "#14141e"
	}
	return "#e8e8f0"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
