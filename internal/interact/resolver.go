// Package interact resolves pointer events against the current frame.
//
// The resolver is a pure function of (pointer position, current shapes)
// plus two bits of state: which node is hovered, and whether navigation
// or an animation lock is holding clicks. It owns no goroutines and emits
// plain events; shells decide what to do with them.
package interact

import (
	"spaceview/internal/layout"
	"spaceview/internal/tree"
)

// EventType tags a resolved pointer event.
type EventType string

const (
	// EventHover reports the hovered node changed; Node is -1 on leave.
	EventHover EventType = "hover"
	// EventSelect reports a click on a non-navigable shape (a file, the
	// free-space wedge, a truncation bucket).
	EventSelect EventType = "select"
	// EventNavigate requests a drill into a directory's path.
	EventNavigate EventType = "navigate"
	// EventAscend requests going back up; the layout root's own shape is
	// the back control in every mode (sunburst center, treemap border,
	// pack rim, city ground).
	EventAscend EventType = "ascend"
)

// Event is one resolved interaction.
type Event struct {
	Type EventType
	// Node is the arena ID the event concerns, -1 for hover-nothing.
	Node int
	// Path is the filesystem path to act on: the clicked directory for
	// navigate, the layout root's parent for ascend.
	Path string
	// Chain accompanies hover: the node plus every ancestor to the root,
	// nearest first, for breadcrumb and highlight rendering.
	Chain []int
}

// Resolver maps screen points to nodes on the current frame.
type Resolver struct {
	h *tree.Hierarchy
	f *layout.Frame

	hovered  int
	inFlight bool
	locked   bool
}

// New returns a resolver with no scene; SetScene arms it.
func New() *Resolver {
	return &Resolver{hovered: -1}
}

// SetScene swaps in a freshly laid-out frame. Hover state resets because
// the old shape under the pointer no longer exists.
func (r *Resolver) SetScene(h *tree.Hierarchy, f *layout.Frame) {
	r.h = h
	r.f = f
	r.hovered = -1
}

// SetLocked holds clicks during transitions. Hover keeps resolving so the
// detail panel stays live.
func (r *Resolver) SetLocked(v bool) { r.locked = v }

// BeginNavigation suppresses further navigate events until EndNavigation;
// Click sets it itself, this is for shells that navigate by keyboard.
func (r *Resolver) BeginNavigation() { r.inFlight = true }

// EndNavigation re-enables navigation after the fetch settles, success or
// not.
func (r *Resolver) EndNavigation() { r.inFlight = false }

// InFlight reports whether a navigation is outstanding.
func (r *Resolver) InFlight() bool { return r.inFlight }

// Hovered returns the currently hovered node, -1 for none.
func (r *Resolver) Hovered() int { return r.hovered }

// PointerMove resolves a motion event. It returns a hover event only when
// the hovered node actually changed, so callers can repaint exactly then.
func (r *Resolver) PointerMove(x, y float64) (Event, bool) {
	if r.f == nil || r.h == nil {
		return Event{}, false
	}
	id := -1
	if s := r.f.HitTest(x, y); s != nil {
		id = s.NodeID
	}
	if id == r.hovered {
		return Event{}, false
	}
	r.hovered = id
	ev := Event{Type: EventHover, Node: id}
	if id >= 0 {
		ev.Chain = r.h.Chain(id)
		if n := r.h.Node(id); n != nil {
			ev.Path = n.Path
		}
	}
	return ev, true
}

// Click resolves a press. Exactly one navigate fires per directory click;
// clicks during a transition lock or an in-flight navigation are dropped.
func (r *Resolver) Click(x, y float64) (Event, bool) {
	if r.f == nil || r.h == nil || r.locked {
		return Event{}, false
	}
	s := r.f.HitTest(x, y)
	if s == nil {
		return Event{}, false
	}
	n := r.h.Node(s.NodeID)
	if n == nil {
		return Event{}, false
	}

	if s.NodeID == r.f.Root {
		ev := Event{Type: EventAscend, Node: s.NodeID}
		if p := r.h.Node(n.Parent); p != nil {
			ev.Path = p.Path
		}
		return ev, true
	}

	if n.Navigable() && n.Path != "" {
		if r.inFlight {
			return Event{}, false
		}
		r.inFlight = true
		return Event{Type: EventNavigate, Node: n.ID, Path: n.Path}, true
	}

	return Event{Type: EventSelect, Node: n.ID, Path: n.Path, Chain: r.h.Chain(n.ID)}, true
}
