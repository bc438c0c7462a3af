package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceview/internal/events"
)

// waitForEvent drains ch until pred matches or the timeout expires.
func waitForEvent(t *testing.T, ch chan events.Event, timeout time.Duration, pred func(events.Event) bool) events.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-ch:
			if pred(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timeout waiting for event")
			return events.Event{}
		}
	}
}

func TestWatcherPublishesDebouncedEvents(t *testing.T) {
	root := t.TempDir()
	bus := events.NewBroadcaster()
	var flushes atomic.Int32

	w, err := New(root, Config{Debounce: 80 * time.Millisecond}, bus, func() { flushes.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	time.Sleep(100 * time.Millisecond) // let fsnotify settle

	target := filepath.Join(root, "fresh.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	ev := waitForEvent(t, ch, 3*time.Second, func(ev events.Event) bool {
		return ev.Path == target
	})
	assert.Equal(t, root, ev.Root)
	assert.Contains(t, []string{events.TypeCreated, events.TypeModified}, ev.Type)
	assert.GreaterOrEqual(t, flushes.Load(), int32(1))
}

func TestWatcherCoalescesBurstIntoOneFlush(t *testing.T) {
	root := t.TempDir()
	var flushes atomic.Int32

	w, err := New(root, Config{Debounce: 300 * time.Millisecond}, nil, func() { flushes.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "burst"+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	time.Sleep(900 * time.Millisecond)
	assert.Equal(t, int32(1), flushes.Load(), "one quiet period, one flush")
}

func TestWatcherReportsDeletes(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "doomed.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	bus := events.NewBroadcaster()
	w, err := New(root, Config{Debounce: 50 * time.Millisecond}, bus, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.Remove(target))

	ev := waitForEvent(t, ch, 3*time.Second, func(ev events.Event) bool {
		return ev.Path == target && ev.Type == events.TypeDeleted
	})
	assert.Equal(t, root, ev.Root)
}

func TestIgnoredFragments(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Config{Ignore: []string{"/target/"}}, nil, nil)
	require.NoError(t, err)

	assert.True(t, w.ignored(filepath.Join(root, "node_modules", "left-pad", "index.js")))
	assert.True(t, w.ignored(filepath.Join(root, "proj", ".git", "HEAD")))
	assert.True(t, w.ignored(filepath.Join(root, "proj", "target", "debug")))
	assert.False(t, w.ignored(filepath.Join(root, "src", "app.go")))
	assert.False(t, w.ignored(filepath.Join(root, "gitlog.txt")))
}

func TestTopLevelAttribution(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Config{}, nil, nil)
	require.NoError(t, err)

	deep := filepath.Join(root, "projects", "api", "main.go")
	assert.Equal(t, filepath.Join(root, "projects"), w.topLevel(deep))
	assert.Equal(t, root, w.topLevel(root))
	assert.Equal(t, root, w.topLevel(filepath.Dir(root)), "paths outside the root collapse to it")
}

func TestStartTwiceFailsAndStopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), Config{}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	assert.Error(t, w.Start())

	w.Stop()
	w.Stop() // second stop is a no-op
}

func TestNewRejectsMissingOrFileTargets(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), Config{}, nil, nil)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New(file, Config{}, nil, nil)
	assert.Error(t, err)
}
