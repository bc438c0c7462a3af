// Package anim schedules and drives entrance transitions between frames.
//
// A schedule is computed once per new frame: every shape gets a delay from
// its depth and sibling position, so layouts bloom outward in a wave. The
// animator then answers, for any wall-clock instant, how far along each
// shape is. Shells own the clock and ask; nothing here sleeps or spawns
// goroutines.
package anim

import (
	"time"

	"spaceview/internal/layout"
)

// Config tunes transition pacing.
type Config struct {
	// NodeDuration is how long one shape takes to grow in.
	NodeDuration time.Duration
	// PerDepth delays each hierarchy level.
	PerDepth time.Duration
	// PerSibling staggers shapes within one container.
	PerSibling time.Duration
	// MaxTotal bounds the whole transition: delays compress so a
	// ten-thousand-node tree finishes as promptly as a ten-node one.
	MaxTotal time.Duration
}

// DefaultConfig returns the tuned pacing.
func DefaultConfig() Config {
	return Config{
		NodeDuration: 260 * time.Millisecond,
		PerDepth:     40 * time.Millisecond,
		PerSibling:   8 * time.Millisecond,
		MaxTotal:     900 * time.Millisecond,
	}
}

// Schedule holds one per-shape timing entry, index-aligned with the
// frame's shape slice.
type Schedule struct {
	delays   []time.Duration
	duration time.Duration
	total    time.Duration
}

// Total is the wall-clock length of the whole transition.
func (s *Schedule) Total() time.Duration { return s.total }

// Delay returns the start offset of shape i.
func (s *Schedule) Delay(i int) time.Duration {
	if i < 0 || i >= len(s.delays) {
		return 0
	}
	return s.delays[i]
}

// Build computes the schedule for a frame's entrance. Delay grows with
// depth below the layout root and with sibling position; when the raw
// spread would blow the MaxTotal budget every delay is scaled down
// proportionally, preserving the wave's shape.
func Build(f *layout.Frame, cfg Config) *Schedule {
	if cfg.NodeDuration <= 0 {
		cfg = DefaultConfig()
	}
	s := &Schedule{
		delays:   make([]time.Duration, len(f.Shapes)),
		duration: cfg.NodeDuration,
	}
	if len(f.Shapes) == 0 {
		s.total = cfg.NodeDuration
		return s
	}

	rootDepth := f.Shapes[0].Depth
	sibSeen := make(map[int]int, 64)
	var maxDelay time.Duration
	for i := range f.Shapes {
		sh := &f.Shapes[i]
		rel := sh.Depth - rootDepth
		if rel < 0 {
			rel = 0
		}
		sib := sibSeen[sh.Parent]
		sibSeen[sh.Parent] = sib + 1

		d := time.Duration(rel)*cfg.PerDepth + time.Duration(sib)*cfg.PerSibling
		s.delays[i] = d
		if d > maxDelay {
			maxDelay = d
		}
	}

	budget := cfg.MaxTotal - cfg.NodeDuration
	if budget < 0 {
		budget = 0
	}
	if maxDelay > budget && maxDelay > 0 {
		k := float64(budget) / float64(maxDelay)
		for i := range s.delays {
			s.delays[i] = time.Duration(float64(s.delays[i]) * k)
		}
		maxDelay = budget
	}
	s.total = maxDelay + cfg.NodeDuration
	return s
}

// Animator runs one schedule against wall-clock time.
type Animator struct {
	sched   *Schedule
	started time.Time
	running bool
}

// Start arms the schedule. Starting over a running transition is the
// interrupt-and-replace the event model requires: the old one snaps done.
func (a *Animator) Start(s *Schedule, now time.Time) {
	a.sched = s
	a.started = now
	a.running = s != nil
}

// Interrupt snaps the current transition to its final state.
func (a *Animator) Interrupt() { a.running = false }

// Running reports whether the transition is still in progress at now.
func (a *Animator) Running(now time.Time) bool {
	if !a.running || a.sched == nil {
		return false
	}
	if now.Sub(a.started) >= a.sched.total {
		a.running = false
	}
	return a.running
}

// Locking reports whether interaction should be held. Clicks against
// still-moving shapes would navigate somewhere the user did not aim, so
// the lock spans the whole (bounded) transition.
func (a *Animator) Locking(now time.Time) bool { return a.Running(now) }

// Progress returns shape i's eased progress in [0,1] at now.
func (a *Animator) Progress(i int, now time.Time) float64 {
	if !a.Running(now) {
		return 1
	}
	d := a.sched.Delay(i)
	t := now.Sub(a.started) - d
	if t <= 0 {
		return 0
	}
	if t >= a.sched.duration {
		return 1
	}
	return easeOutCubic(float64(t) / float64(a.sched.duration))
}

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// ShapeAt interpolates a shape from its degenerate entrance form to its
// final geometry: arcs sweep open, rects grow from their center, circles
// inflate, city blocks rise out of the ground.
func ShapeAt(mode layout.Mode, final layout.Shape, t float64) layout.Shape {
	if t >= 1 {
		return final
	}
	if t < 0 {
		t = 0
	}
	s := final
	switch mode {
	case layout.ModeSunburst:
		s.A1 = final.A0 + (final.A1-final.A0)*t
	case layout.ModeTreemap:
		cx := final.X + final.W/2
		cy := final.Y + final.H/2
		s.W = final.W * t
		s.H = final.H * t
		s.X = cx - s.W/2
		s.Y = cy - s.H/2
	case layout.ModeCirclePack:
		s.R = final.R * t
	case layout.ModeCity:
		s.Elev = final.Elev * t
	}
	s.Label = final.Label && t >= 1
	return s
}

// Snapshot renders the whole frame at now: a fresh shape slice painters
// can draw directly. Past the end it returns the frame's own shapes.
func (a *Animator) Snapshot(f *layout.Frame, now time.Time) []layout.Shape {
	if f == nil {
		return nil
	}
	if !a.Running(now) {
		return f.Shapes
	}
	out := make([]layout.Shape, len(f.Shapes))
	for i := range f.Shapes {
		out[i] = ShapeAt(f.Mode, f.Shapes[i], a.Progress(i, now))
	}
	return out
}
