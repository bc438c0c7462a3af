// Package events fans filesystem change notifications out to live views.
//
// The watcher publishes, every open SSE stream and the TUI's refresh hint
// subscribe. Publishing never blocks: a stalled consumer loses events
// rather than stalling the watcher.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Event types. Filesystem changes carry the three watcher verbs; scan and
// trash completions are published by the API handlers so that other open
// views refresh without polling.
const (
	TypeCreated  = "created"
	TypeModified = "modified"
	TypeDeleted  = "deleted"
	TypeScanDone = "scan"
	TypeTrashed  = "trash"
)

// Event is one change notification.
type Event struct {
	Type string `json:"type"`
	Path string `json:"path"`
	// Root is the scan root the path falls under, so a view showing a
	// different disk can ignore the event without a path comparison.
	Root string `json:"root,omitempty"`
	Time int64  `json:"time"`
}

// SSE renders the event as a server-sent-events frame.
func (e Event) SSE() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return []byte("event: " + e.Type + "\ndata: " + string(body) + "\n\n"), nil
}

const subscriberBuffer = 64

// Broadcaster distributes events to any number of subscribers.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a consumer. The caller owns the channel until it
// hands it back to Unsubscribe.
func (b *Broadcaster) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a consumer and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber that has buffer room.
func (b *Broadcaster) Publish(e Event) {
	if e.Time == 0 {
		e.Time = time.Now().Unix()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// slow consumer, drop
		}
	}
}

// Count reports the number of live subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
