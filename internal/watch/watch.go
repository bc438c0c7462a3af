// Package watch turns raw filesystem notifications into debounced change
// events. Bursts (an unzip, a build, a large download) collapse into one
// flush per quiet period, so subscribers refresh once instead of hundreds
// of times.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"spaceview/internal/events"
)

// DefaultDebounce is the quiet period that ends a burst.
const DefaultDebounce = 2 * time.Second

// defaultIgnore lists path fragments that churn constantly without the
// user doing anything worth refreshing for.
var defaultIgnore = []string{
	"/Library/Caches/",
	"/.Trash/",
	"/node_modules/",
	"/__pycache__/",
	"/.git/",
}

// Config tunes a Watcher.
type Config struct {
	Debounce time.Duration
	// MaxDepth bounds how many directory levels below the root get their
	// own watch. Deeper changes go unnoticed until a rescan.
	MaxDepth int
	Ignore   []string
}

// DefaultConfig returns the settings used when the config file has no
// watch section.
func DefaultConfig() Config {
	return Config{Debounce: DefaultDebounce, MaxDepth: 2}
}

type change struct {
	typ  string
	path string
}

// Watcher observes one root directory tree.
type Watcher struct {
	root    string
	cfg     Config
	fw      *fsnotify.Watcher
	bus     *events.Broadcaster
	onFlush func()

	mu      sync.Mutex
	pending map[change]struct{}
	timer   *time.Timer
	running bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New prepares a watcher for root. Events are published to bus and
// onFlush runs once per flush; either may be nil. Watches cover root and
// its subdirectories down to cfg.MaxDepth.
func New(root string, cfg Config, bus *events.Broadcaster, onFlush func()) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", abs)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:    abs,
		cfg:     cfg,
		fw:      fw,
		bus:     bus,
		onFlush: onFlush,
		pending: map[change]struct{}{},
		done:    make(chan struct{}),
	}
	if err := w.addTree(abs, 0); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers watches for dir and its children up to MaxDepth.
func (w *Watcher) addTree(dir string, depth int) error {
	if err := w.fw.Add(dir); err != nil {
		if depth == 0 {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		return nil // unreadable subdir, skip
	}
	if depth >= w.cfg.MaxDepth {
		return nil
	}
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, de := range des {
		if !de.IsDir() {
			continue
		}
		sub := filepath.Join(dir, de.Name())
		if w.ignored(sub) {
			continue
		}
		if err := w.addTree(sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Start begins delivering events. It may be called once per Watcher.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop halts delivery and discards any pending batch.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = map[change]struct{}{}
	close(w.done)
	w.mu.Unlock()

	w.fw.Close()
	w.wg.Wait()
}

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Overflow or a vanished watch; a rescan will catch up.
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}

	var typ string
	switch {
	case ev.Op.Has(fsnotify.Create):
		typ = events.TypeCreated
		// New directories inside the watch horizon get watched too.
		if fi, err := os.Lstat(ev.Name); err == nil && fi.IsDir() {
			if w.depthOf(ev.Name) < w.cfg.MaxDepth {
				w.fw.Add(ev.Name)
			}
		}
	case ev.Op.Has(fsnotify.Write):
		typ = events.TypeModified
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		typ = events.TypeDeleted
	default:
		return // chmod only
	}

	w.record(change{typ: typ, path: w.topLevel(ev.Name)})
}

// record adds a change to the batch and re-arms the debounce timer.
func (w *Watcher) record(c change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.pending[c] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.cfg.Debounce, w.flush)
	} else {
		w.timer.Reset(w.cfg.Debounce)
	}
}

// flush publishes the batch after a quiet period.
func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.running || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]change, 0, len(w.pending))
	for c := range w.pending {
		batch = append(batch, c)
	}
	w.pending = map[change]struct{}{}
	w.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool {
		if batch[i].path != batch[j].path {
			return batch[i].path < batch[j].path
		}
		return batch[i].typ < batch[j].typ
	})

	if w.onFlush != nil {
		w.onFlush()
	}
	if w.bus != nil {
		for _, c := range batch {
			w.bus.Publish(events.Event{Type: c.typ, Path: c.path, Root: w.root})
		}
	}
}

// ignored reports whether path contains a noisy fragment.
func (w *Watcher) ignored(path string) bool {
	p := filepath.ToSlash(path)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	for _, frag := range defaultIgnore {
		if strings.Contains(p, frag) {
			return true
		}
	}
	for _, frag := range w.cfg.Ignore {
		if frag != "" && strings.Contains(p, frag) {
			return true
		}
	}
	return false
}

// topLevel maps a changed path to the root child it belongs to, which is
// the granularity the UI refreshes at.
func (w *Watcher) topLevel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return w.root
	}
	first := rel
	if i := strings.IndexByte(filepath.ToSlash(rel), '/'); i >= 0 {
		first = rel[:i]
	}
	return filepath.Join(w.root, first)
}

// depthOf counts directory levels between the root and path.
func (w *Watcher) depthOf(path string) int {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
