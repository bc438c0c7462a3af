// Package tui is the terminal shell: a bubbletea program that drives the
// scan provider, layout engines, animator, and resolver from one event
// loop. It draws with cell-level rasterization of the same frames the HTTP
// API serves, so every mode looks and clicks the same in a terminal as in
// any other client.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spaceview/internal/anim"
	"spaceview/internal/events"
	"spaceview/internal/interact"
	"spaceview/internal/layout"
	"spaceview/internal/scale"
	"spaceview/internal/scan"
	"spaceview/internal/trash"
	"spaceview/internal/tree"
	"spaceview/internal/viewport"
)

const (
	headerRows = 1
	chromeRows = 3 // header + status + key hints

	sidebarCols   = 30
	wideLayoutMin = 100

	keyZoom   = 1.25
	wheelZoom = 1.15
	panStep   = 4.0

	// offCanvas is a screen point no shape can contain; moving the pointer
	// there clears the hover.
	offCanvas = -1e12

	scanTimeout   = 5 * time.Minute
	deleteTimeout = time.Minute
)

// Options wires a shell together. Provider is the only required field;
// nil hooks switch their feature off rather than failing.
type Options struct {
	// Provider supplies directory trees, local or remote.
	Provider scan.Provider
	// Depth is the scan depth per drill-in; <= 0 uses the provider default.
	Depth int

	// StartPath is the first directory shown.
	StartPath string
	// Mode is the initial layout; empty means sunburst.
	Mode layout.Mode

	// Engines tunes the layout engines; the zero value means defaults.
	Engines layout.Config
	// ScalerFor picks the weight scale per mode; nil means cube root.
	ScalerFor func(layout.Mode) (scale.Func, error)
	// Pacing tunes entrance transitions; the zero value means defaults.
	Pacing anim.Config

	// Delete moves a path to trash (or removes it when permanent). Nil
	// disables the delete keys.
	Delete func(ctx context.Context, path string, permanent bool) (trash.Result, error)
	// Invalidate drops any provider-side cache after a delete; may be nil.
	Invalidate func()
	// Reveal opens a path in the system file browser; may be nil.
	Reveal func(path string) error

	// Events feeds live filesystem changes; entries under the current
	// view flag it stale. May be nil.
	Events <-chan events.Event
}

// history bookkeeping carried through a scan, applied only on success so
// a failed drill never corrupts the breadcrumb stack.
const (
	histNone = iota
	histPush
	histPop
)

type scanDoneMsg struct {
	seq  int
	path string
	hist int
	raw  *tree.RawNode
	err  error
}

type deleteDoneMsg struct {
	path string
	res  trash.Result
	err  error
}

type revealDoneMsg struct{ err error }

type fsEventMsg events.Event

// frameTickMsg paces redraws while a transition is running.
type frameTickMsg time.Time

// confirmPrompt is the pending delete the modal is asking about.
type confirmPrompt struct {
	path      string
	name      string
	size      int64
	permanent bool
	focus     int // 0 = delete, 1 = keep
}

type model struct {
	opts Options
	keys KeyMap
	spin spinner.Model
	help help.Model

	width  int
	height int

	mode    layout.Mode
	path    string
	history []string

	raw   *tree.RawNode
	hier  *tree.Hierarchy
	frame *layout.Frame

	res  *interact.Resolver
	anim *anim.Animator
	vp   *viewport.Controller

	scanSeq  int
	scanning bool
	deleting bool
	err      error
	status   string
	stale    bool

	hovered   int
	hoverPath string
	chain     []int

	confirm  *confirmPrompt
	showHelp bool
}

func newModel(o Options) model {
	if o.Mode == "" {
		o.Mode = layout.ModeSunburst
	}
	if o.Engines == (layout.Config{}) {
		o.Engines = layout.DefaultConfig()
	}
	if o.ScalerFor == nil {
		o.ScalerFor = func(layout.Mode) (scale.Func, error) { return scale.CubeRoot(1), nil }
	}
	if o.Pacing == (anim.Config{}) {
		o.Pacing = anim.DefaultConfig()
	}
	if o.StartPath == "" {
		o.StartPath = "/"
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))

	return model{
		opts:     o,
		keys:     DefaultKeyMap(),
		spin:     sp,
		help:     help.New(),
		mode:     o.Mode,
		path:     o.StartPath,
		res:      interact.New(),
		anim:     &anim.Animator{},
		vp:       viewport.New(),
		scanSeq:  1,
		scanning: true,
		hovered:  -1,
	}
}

// Run starts the interactive browser and blocks until the user quits.
func Run(o Options) error {
	p := tea.NewProgram(newModel(o),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, m.scanCmd(m.path, m.scanSeq, histNone)}
	if m.opts.Events != nil {
		cmds = append(cmds, waitEvent(m.opts.Events))
	}
	return tea.Batch(cmds...)
}

// scanCmd walks path in the background and reports back with seq, so
// results from a superseded scan can be recognized and dropped.
func (m model) scanCmd(path string, seq, hist int) tea.Cmd {
	provider, depth := m.opts.Provider, m.opts.Depth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()
		raw, err := provider.Scan(ctx, path, depth)
		return scanDoneMsg{seq: seq, path: path, hist: hist, raw: raw, err: err}
	}
}

func (m model) deleteCmd(path string, permanent bool) tea.Cmd {
	del := m.opts.Delete
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		res, err := del(ctx, path, permanent)
		return deleteDoneMsg{path: path, res: res, err: err}
	}
}

func waitEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return fsEventMsg(ev)
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		if m.raw != nil {
			// First layout animates; resizes snap into place.
			(&m).rebuildScene(m.frame == nil)
			m.vp.Reset()
			if m.anim.Running(time.Now()) {
				return m, frameTick()
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case spinner.TickMsg:
		if !m.scanning && !m.deleting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case frameTickMsg:
		now := time.Time(msg)
		if m.anim.Running(now) {
			m.res.SetLocked(true)
			return m, frameTick()
		}
		m.res.SetLocked(false)
		return m, nil

	case scanDoneMsg:
		return m.finishScan(msg)

	case deleteDoneMsg:
		return m.finishDelete(msg)

	case revealDoneMsg:
		if msg.err != nil {
			m.status = "open failed: " + msg.err.Error()
		}
		return m, nil

	case fsEventMsg:
		ev := events.Event(msg)
		if !m.stale && (underneath(m.path, ev.Path) || underneath(m.path, ev.Root)) {
			m.stale = true
		}
		if m.opts.Events == nil {
			return m, nil
		}
		return m, waitEvent(m.opts.Events)
	}
	return m, nil
}

func (m model) finishScan(msg scanDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.scanSeq {
		return m, nil // superseded
	}
	m.scanning = false
	m.res.EndNavigation()
	if msg.err != nil {
		m.err = msg.err
		m.status = "scan failed: " + msg.err.Error()
		return m, nil
	}
	switch msg.hist {
	case histPush:
		if m.path != "" && m.path != msg.path {
			m.history = append(m.history, m.path)
		}
	case histPop:
		if n := len(m.history); n > 0 {
			m.history = m.history[:n-1]
		}
	}
	m.err = nil
	m.raw = msg.raw
	m.path = msg.path
	m.stale = false
	m.status = ""
	m.hovered, m.hoverPath, m.chain = -1, "", nil
	m.vp.Reset()
	(&m).rebuildScene(true)
	return m, frameTick()
}

func (m model) finishDelete(msg deleteDoneMsg) (tea.Model, tea.Cmd) {
	m.deleting = false
	if msg.err != nil {
		m.status = "delete failed: " + msg.err.Error()
		return m, nil
	}
	m.status = msg.res.Message
	if m.status == "" {
		m.status = "deleted " + filepath.Base(msg.path)
	}
	if !msg.res.Success {
		return m, nil
	}
	if m.opts.Invalidate != nil {
		m.opts.Invalidate()
	}
	return m.startScan(m.path, histNone)
}

// rebuildScene reweighs the cached tree for the current mode, lays it out
// at the current canvas size, and rearms resolver and animator. A no-op
// until both a tree and a window size exist.
func (m *model) rebuildScene(animate bool) {
	if m.raw == nil {
		return
	}
	cols, rows := m.canvasSize()
	if cols <= 0 || rows <= 0 {
		return
	}
	sc, err := m.opts.ScalerFor(m.mode)
	if err != nil || sc == nil {
		sc = scale.CubeRoot(1)
	}
	m.hier = tree.Builder{Scale: sc}.Build(m.raw)

	eng, err := layout.ForMode(m.mode, m.opts.Engines)
	if err != nil {
		return // unreachable with the fixed mode set
	}
	m.frame = eng.Layout(m.hier, 0, float64(cols), float64(rows)*cellAspect)
	m.res.SetScene(m.hier, m.frame)
	m.hovered, m.hoverPath, m.chain = -1, "", nil

	if animate {
		m.anim.Start(anim.Build(m.frame, m.opts.Pacing), time.Now())
		m.res.SetLocked(true)
	} else {
		m.anim.Interrupt()
		m.res.SetLocked(false)
	}
}

func (m model) startScan(path string, hist int) (tea.Model, tea.Cmd) {
	m.scanSeq++
	m.scanning = true
	m.err = nil
	m.status = ""
	m.res.BeginNavigation()
	return m, tea.Batch(m.spin.Tick, m.scanCmd(path, m.scanSeq, hist))
}

func (m model) ascend() (tea.Model, tea.Cmd) {
	if n := len(m.history); n > 0 {
		return m.startScan(m.history[n-1], histPop)
	}
	parent := filepath.Dir(m.path)
	if parent == m.path {
		m.status = "already at the filesystem root"
		return m, nil
	}
	return m.startScan(parent, histNone)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Quit),
			key.Matches(msg, m.keys.Ascend):
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Sunburst):
		return m.switchMode(layout.ModeSunburst)
	case key.Matches(msg, m.keys.Treemap):
		return m.switchMode(layout.ModeTreemap)
	case key.Matches(msg, m.keys.CirclePack):
		return m.switchMode(layout.ModeCirclePack)
	case key.Matches(msg, m.keys.City):
		return m.switchMode(layout.ModeCity)

	case key.Matches(msg, m.keys.Navigate):
		return m.navigateHovered()

	case key.Matches(msg, m.keys.Ascend):
		if m.scanning {
			return m, nil
		}
		return m.ascend()

	case key.Matches(msg, m.keys.Rescan):
		if m.scanning {
			return m, nil
		}
		if m.opts.Invalidate != nil {
			m.opts.Invalidate()
		}
		return m.startScan(m.path, histNone)

	case key.Matches(msg, m.keys.Open):
		return m.reveal()

	case key.Matches(msg, m.keys.Delete):
		return m.askDelete(false)
	case key.Matches(msg, m.keys.Purge):
		return m.askDelete(true)

	case key.Matches(msg, m.keys.ZoomIn), key.Matches(msg, m.keys.ZoomOut):
		cols, rows := m.canvasSize()
		factor := keyZoom
		if key.Matches(msg, m.keys.ZoomOut) {
			factor = 1 / keyZoom
		}
		m.vp.ZoomAt(float64(cols)/2, float64(rows)*cellAspect/2, factor)
		return m, nil

	case key.Matches(msg, m.keys.Reset):
		m.vp.Reset()
		return m, nil

	case key.Matches(msg, m.keys.PanKeys):
		m.pan(msg.String())
		return m, nil
	}
	return m, nil
}

// pan moves the camera: the arrow direction is where the user wants to
// look, so the content shifts the opposite way.
func (m model) pan(k string) {
	switch k {
	case "h", "left":
		m.vp.Pan(panStep, 0)
	case "l", "right":
		m.vp.Pan(-panStep, 0)
	case "k", "up":
		m.vp.Pan(0, panStep)
	case "j", "down":
		m.vp.Pan(0, -panStep)
	}
}

func (m model) switchMode(mode layout.Mode) (tea.Model, tea.Cmd) {
	if mode == m.mode {
		return m, nil
	}
	m.mode = mode
	m.vp.Reset()
	(&m).rebuildScene(true)
	if m.frame == nil {
		return m, nil
	}
	return m, frameTick()
}

func (m model) navigateHovered() (tea.Model, tea.Cmd) {
	if m.scanning || m.hier == nil || m.frame == nil {
		return m, nil
	}
	if m.hovered < 0 {
		m.status = "point at a directory, then press enter"
		return m, nil
	}
	if m.hovered == m.frame.Root {
		return m.ascend()
	}
	n := m.hier.Node(m.hovered)
	if n == nil || !n.Navigable() || n.Path == "" {
		m.status = "not a directory"
		return m, nil
	}
	return m.startScan(n.Path, histPush)
}

func (m model) reveal() (tea.Model, tea.Cmd) {
	if m.opts.Reveal == nil {
		m.status = "no file browser hook on this platform"
		return m, nil
	}
	target := m.hoverPath
	if target == "" {
		target = m.path
	}
	open := m.opts.Reveal
	return m, func() tea.Msg {
		return revealDoneMsg{err: open(target)}
	}
}

func (m model) askDelete(permanent bool) (tea.Model, tea.Cmd) {
	if m.opts.Delete == nil {
		m.status = "deletion is not wired up"
		return m, nil
	}
	if m.scanning || m.deleting {
		return m, nil
	}
	if m.hovered < 0 || m.hier == nil || m.frame == nil {
		m.status = "point at something to delete"
		return m, nil
	}
	n := m.hier.Node(m.hovered)
	if n == nil || n.Path == "" || m.hovered == m.frame.Root {
		m.status = "point at something to delete"
		return m, nil
	}
	m.confirm = &confirmPrompt{
		path:      n.Path,
		name:      n.Name,
		size:      n.Size,
		permanent: permanent,
		focus:     1, // keep is the default
	}
	return m, nil
}

func (m model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	switch msg.String() {
	case "left", "h", "right", "l", "tab":
		c.focus = 1 - c.focus
		return m, nil
	case "y":
		return m.runDelete()
	case "n", "esc", "q":
		m.confirm = nil
		return m, nil
	case "enter":
		if c.focus == 0 {
			return m.runDelete()
		}
		m.confirm = nil
		return m, nil
	}
	// Everything else is swallowed while the modal is up.
	return m, nil
}

func (m model) runDelete() (tea.Model, tea.Cmd) {
	c := m.confirm
	m.confirm = nil
	m.deleting = true
	m.status = "deleting " + c.name + "…"
	return m, tea.Batch(m.spin.Tick, m.deleteCmd(c.path, c.permanent))
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil || m.showHelp {
		return m, nil
	}
	cols, rows := m.canvasSize()
	mx, my := msg.X, msg.Y-headerRows
	inside := mx >= 0 && mx < cols && my >= 0 && my < rows
	sx := float64(mx) + 0.5
	sy := float64(my)*cellAspect + 1

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if inside {
			m.vp.ZoomAt(sx, sy, wheelZoom)
		}
		return m, nil
	case tea.MouseButtonWheelDown:
		if inside {
			m.vp.ZoomAt(sx, sy, 1/wheelZoom)
		}
		return m, nil
	}

	lx, ly := m.vp.Invert(sx, sy)
	switch msg.Action {
	case tea.MouseActionMotion:
		if !inside {
			lx, ly = offCanvas, offCanvas
		}
		if ev, ok := m.res.PointerMove(lx, ly); ok {
			m.applyHover(ev)
		}
		return m, nil

	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return m, nil
		}
		if ev, ok := m.res.Click(lx, ly); ok {
			return m.applyClick(ev)
		}
		return m, nil
	}
	return m, nil
}

func (m *model) applyHover(ev interact.Event) {
	m.hovered = ev.Node
	m.hoverPath = ev.Path
	m.chain = ev.Chain
}

func (m model) applyClick(ev interact.Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case interact.EventNavigate:
		return m.startScan(ev.Path, histPush)
	case interact.EventAscend:
		return m.ascend()
	case interact.EventSelect:
		if n := m.hier.Node(ev.Node); n != nil {
			m.status = fmt.Sprintf("%s — %s", n.Name, byteCount(n.Size))
		}
	}
	return m, nil
}

func (m model) canvasSize() (cols, rows int) {
	cols = m.width - m.sidebarWidth()
	rows = m.height - chromeRows
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	return cols, rows
}

// underneath reports whether p lies inside the tree rooted at root.
func underneath(root, p string) bool {
	if root == "" || p == "" {
		return false
	}
	if p == root {
		return true
	}
	r := strings.TrimSuffix(root, string(filepath.Separator))
	return strings.HasPrefix(p, r+string(filepath.Separator))
}
