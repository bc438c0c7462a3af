package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is every binding the shell answers to. The bubbles help view
// renders it, so bindings and their documentation cannot drift apart.
type KeyMap struct {
	Sunburst   key.Binding
	Treemap    key.Binding
	CirclePack key.Binding
	City       key.Binding

	Navigate key.Binding
	Ascend   key.Binding
	Rescan   key.Binding
	Open     key.Binding
	Delete   key.Binding
	Purge    key.Binding

	ZoomIn  key.Binding
	ZoomOut key.Binding
	PanKeys key.Binding
	Reset   key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Sunburst: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "sunburst"),
		),
		Treemap: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "treemap"),
		),
		CirclePack: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "circle pack"),
		),
		City: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "city"),
		),
		Navigate: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter/click", "open directory"),
		),
		Ascend: key.NewBinding(
			key.WithKeys("b", "backspace", "esc"),
			key.WithHelp("b/esc", "go up"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "reveal in file browser"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "move to trash"),
		),
		Purge: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete permanently"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "zoom"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
		),
		PanKeys: key.NewBinding(
			key.WithKeys("h", "j", "k", "l", "left", "down", "up", "right"),
			key.WithHelp("hjkl/arrows", "pan"),
		),
		Reset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset view"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp is the single-line hint bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Navigate, k.Ascend, k.Sunburst, k.Delete, k.Help, k.Quit}
}

// FullHelp is the expanded overlay, grouped by concern.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Sunburst, k.Treemap, k.CirclePack, k.City},
		{k.Navigate, k.Ascend, k.Rescan, k.Open},
		{k.Delete, k.Purge},
		{k.ZoomIn, k.PanKeys, k.Reset},
		{k.Help, k.Quit},
	}
}
