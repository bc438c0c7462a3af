package scan

import (
	"context"

	"spaceview/internal/tree"
)

// Provider is a source of directory trees. The terminal shell drills
// through one without knowing whether the walk happens in-process or on a
// remote spaceview server.
type Provider interface {
	Scan(ctx context.Context, path string, depth int) (*tree.RawNode, error)
}

// Local adapts the cached scanner to the Provider contract, fixing the
// per-request knobs the interface deliberately leaves out.
type Local struct {
	cache       *Cache
	maxChildren int
}

// NewLocal wraps a cache. maxChildren <= 0 uses the default cap.
func NewLocal(c *Cache, maxChildren int) *Local {
	return &Local{cache: c, maxChildren: maxChildren}
}

// Scan walks (or re-serves) the tree under path.
func (l *Local) Scan(ctx context.Context, path string, depth int) (*tree.RawNode, error) {
	root, _, err := l.cache.Scan(ctx, path, Options{Depth: depth, MaxChildren: l.maxChildren})
	return root, err
}

// Invalidate drops the cache so the next Scan reflects a deletion.
func (l *Local) Invalidate() { l.cache.Invalidate() }
