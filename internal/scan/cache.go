package scan

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spaceview/internal/platform"
	"spaceview/internal/tree"
)

// DefaultTTL is how long a scan result stays fresh. Two minutes keeps the
// UI snappy across mode switches and navigation without showing stale
// numbers for long.
const DefaultTTL = 120 * time.Second

type cacheEntry struct {
	at    time.Time
	root  *tree.RawNode
	stats Stats
}

// Cache memoizes scans per (path, depth, max-children) with a TTL and
// collapses concurrent identical requests into one walk. Results are
// shared, so callers must treat the returned tree as read-only.
type Cache struct {
	scanner *Scanner
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

// NewCache wraps a scanner. ttl <= 0 uses DefaultTTL.
func NewCache(s *Scanner, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		scanner: s,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(abs string, opt Options) string {
	return abs + "|" + strconv.Itoa(opt.Depth) + "|" + strconv.Itoa(opt.MaxChildren)
}

// Scan returns a fresh-enough cached tree or performs the walk. Identical
// in-flight requests share one walk via singleflight; the walk runs under
// the first caller's context.
func (c *Cache) Scan(ctx context.Context, path string, opt Options) (*tree.RawNode, Stats, error) {
	opt = opt.normalize()
	abs := platform.Impl.Canonicalize(path)
	key := cacheKey(abs, opt)

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.now().Sub(e.at) < c.ttl {
		return e.root, e.stats, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		root, st, err := c.scanner.Scan(ctx, abs, opt)
		if err != nil {
			return nil, err
		}
		ent := cacheEntry{at: c.now(), root: root, stats: st}
		c.mu.Lock()
		c.entries[key] = ent
		c.mu.Unlock()
		return ent, nil
	})
	if err != nil {
		return nil, Stats{}, err
	}
	ent := v.(cacheEntry)
	return ent.root, ent.stats, nil
}

// Invalidate drops every cached result. A delete or filesystem change
// shifts ancestor totals everywhere, so partial eviction would leave
// stale sums in sibling views; the next request simply rescans.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len reports the number of cached entries, fresh or expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
