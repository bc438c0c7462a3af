package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"spaceview/internal/layout"
	"spaceview/internal/palette"
	"spaceview/internal/tree"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0caf5"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))

	tabStyle       = dimStyle
	activeTabStyle = accentStyle.Underline(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(1, 3)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0caf5")).
			Padding(0, 2)
	focusButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#14141e")).
				Background(lipgloss.Color("#7aa2f7")).
				Padding(0, 2)
	dangerButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#14141e")).
				Background(lipgloss.Color("#f7768e")).
				Padding(0, 2)
)

var modeLabels = map[layout.Mode]string{
	layout.ModeSunburst:   "sunburst",
	layout.ModeTreemap:    "treemap",
	layout.ModeCirclePack: "pack",
	layout.ModeCity:       "city",
}

func (m model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	if m.width < 40 || m.height < 10 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			dimStyle.Render("window too small"))
	}
	if m.confirm != nil {
		return m.confirmView()
	}
	if m.showHelp {
		return m.helpView()
	}

	body := m.canvasView()
	if m.sidebarWidth() > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.sidebarView())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.statusView(),
		m.help.View(m.keys),
	)
}

func (m model) sidebarWidth() int {
	if m.width >= wideLayoutMin {
		return sidebarCols
	}
	return 0
}

func (m model) headerView() string {
	left := accentStyle.Render(" spaceview ") +
		textStyle.Render(truncateLeft(m.path, m.width/2))

	tabs := make([]string, 0, 4)
	for _, mode := range layout.Modes() {
		label := modeLabels[mode]
		if mode == m.mode {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	right := strings.Join(tabs, dimStyle.Render(" · "))
	if m.vp.Scale != 1 {
		right += dimStyle.Render(fmt.Sprintf("  %.0f%%", m.vp.Scale*100))
	}
	right += " "

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m model) canvasView() string {
	cols, rows := m.canvasSize()
	if m.frame == nil {
		msg := m.spin.View() + " scanning " + truncateLeft(m.path, cols-20) + "…"
		if m.err != nil {
			msg = errStyle.Render("scan failed: " + m.err.Error())
		}
		return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, msg)
	}
	shapes := m.anim.Snapshot(m.frame, time.Now())
	cv := rasterize(m.frame, shapes, m.vp, cols, rows)
	return cv.render(shapes, m.hovered)
}

func (m model) sidebarView() string {
	w := m.sidebarWidth()
	_, rows := m.canvasSize()
	inner := w - 2

	var b []string
	b = append(b, dimStyle.Render(" ─ details "+strings.Repeat("─", max(0, inner-11))))

	n := m.detailNode()
	if n != nil {
		name := " " + textStyle.Render(truncateLeft(n.Name, inner-3))
		if n.Color != "" {
			name = " " + lipgloss.NewStyle().Foreground(lipgloss.Color(n.Color)).Render("■") + name
		}
		b = append(b,
			name,
			" "+dimStyle.Render(string(n.Kind))+"  "+textStyle.Render(byteCount(n.Size))+m.shareOfView(n),
		)
		if n.Kind == tree.KindDirectory {
			b = append(b, " "+dimStyle.Render(fmt.Sprintf("%d files · %d dirs", n.FileCount, n.DirCount)))
		}
		if n.ModTime > 0 {
			b = append(b, " "+dimStyle.Render("changed "+humanize.Time(time.Unix(n.ModTime, 0))))
		}
		if n.Path != "" {
			b = append(b, " "+dimStyle.Render(truncateLeft(n.Path, inner-1)))
		}
	} else {
		b = append(b, " "+dimStyle.Render("nothing under the pointer"))
	}

	b = append(b, "", dimStyle.Render(" ─ legend "+strings.Repeat("─", max(0, inner-10))))
	for _, cat := range palette.Categories() {
		sw := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.CategoryColor(cat))).Render("■")
		b = append(b, " "+sw+" "+dimStyle.Render(cat))
	}

	side := lipgloss.NewStyle().Width(w).Height(rows).Render(strings.Join(b, "\n"))
	return side
}

// detailNode is what the side panel describes: the hovered node, falling
// back to the view root.
func (m model) detailNode() *tree.Node {
	if m.hier == nil {
		return nil
	}
	if m.hovered >= 0 {
		if n := m.hier.Node(m.hovered); n != nil {
			return n
		}
	}
	if m.frame != nil {
		return m.hier.Node(m.frame.Root)
	}
	return nil
}

func (m model) shareOfView(n *tree.Node) string {
	if m.frame == nil || m.hier == nil {
		return ""
	}
	root := m.hier.Node(m.frame.Root)
	if root == nil || root.Size <= 0 || n.ID == root.ID {
		return ""
	}
	return dimStyle.Render(fmt.Sprintf("  %.1f%%", float64(n.Size)/float64(root.Size)*100))
}

func (m model) statusView() string {
	var left string
	switch {
	case m.scanning:
		left = m.spin.View() + " scanning " + truncateLeft(m.path, m.width/2) + "…"
	case m.deleting:
		left = m.spin.View() + " " + m.status
	case m.err != nil:
		left = errStyle.Render(m.status)
	case m.stale:
		left = staleStyle.Render("filesystem changed — press r to rescan")
	case m.status != "":
		left = textStyle.Render(m.status)
	case m.hoverPath != "":
		left = dimStyle.Render(truncateLeft(m.hoverPath, m.width-20))
	default:
		left = dimStyle.Render("hover a shape; enter or click opens a directory")
	}

	gap := m.width - lipgloss.Width(left) - 1
	if gap < 0 {
		gap = 0
	}
	return " " + left + strings.Repeat(" ", gap)
}

func (m model) confirmView() string {
	c := m.confirm
	title := accentStyle.Render("Move to trash?")
	confirmLabel := " trash "
	if c.permanent {
		title = errStyle.Bold(true).Render("Delete permanently?")
		confirmLabel = " delete "
	}

	del := buttonStyle.Render(confirmLabel)
	keep := focusButtonStyle.Render(" keep ")
	if c.focus == 0 {
		del = dangerButtonStyle.Render(confirmLabel)
		keep = buttonStyle.Render(" keep ")
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"",
		textStyle.Render(truncateLeft(c.path, 60)),
		dimStyle.Render(byteCount(c.size)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center, del, "   ", keep),
		"",
		dimStyle.Render("←/→ choose · enter apply · esc cancel"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		boxStyle.Render(body),
		lipgloss.WithWhitespaceChars("·"),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("#2a2a3a")),
	)
}

func (m model) helpView() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		accentStyle.Render("keys"),
		"",
		m.help.FullHelpView(m.keys.FullHelp()),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		boxStyle.Render(body),
		lipgloss.WithWhitespaceChars("·"),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("#2a2a3a")),
	)
}

func byteCount(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// truncateLeft keeps the tail of a path-like string, which is the part
// users recognize.
func truncateLeft(s string, maxw int) string {
	if maxw <= 1 {
		return "…"
	}
	r := []rune(s)
	if len(r) <= maxw {
		return s
	}
	return "…" + string(r[len(r)-maxw+1:])
}
