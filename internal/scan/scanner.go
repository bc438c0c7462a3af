// Package scan walks directory trees into the wire format the hierarchy
// builder consumes. Sizes are on-disk allocation, subdirectories fan out
// across a bounded worker pool, and results below the requested depth
// collapse into size-only stubs so payloads stay small while totals stay
// exact.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"spaceview/internal/platform"
	"spaceview/internal/tree"
)

// Typed failures callers branch on; everything else is passed through.
var (
	ErrNotFound     = errors.New("path does not exist")
	ErrNotDirectory = errors.New("path is not a directory")
)

const (
	DefaultDepth       = 4
	MaxScanDepth       = 10
	DefaultMaxChildren = 500
)

// FreeSpaceName labels the synthetic node injected at mount roots.
const FreeSpaceName = "[Free Disk Space]"

// Options bound one scan request.
type Options struct {
	// Depth is how many directory levels the result carries. Directories
	// at the horizon come back as size-only stubs with HasChildren set.
	Depth int
	// MaxChildren caps each directory's listed children; the overflow is
	// folded into one "… N more items" bucket that keeps the total exact.
	MaxChildren int
}

func (o Options) normalize() Options {
	if o.Depth <= 0 {
		o.Depth = DefaultDepth
	}
	if o.Depth > MaxScanDepth {
		o.Depth = MaxScanDepth
	}
	if o.MaxChildren <= 0 {
		o.MaxChildren = DefaultMaxChildren
	}
	return o
}

// Stats summarizes one completed scan.
type Stats struct {
	Files   int64
	Dirs    int64
	Bytes   int64
	Elapsed time.Duration
}

// Scanner walks trees under one Profile. Safe for concurrent scans; the
// worker pool is shared so parallel requests do not multiply load.
type Scanner struct {
	profile *Profile
	sem     chan struct{}
}

// New builds a scanner. workers <= 0 picks a pool sized for fast local
// disks; spinning rust wants a smaller explicit value.
func New(p *Profile, workers int) *Scanner {
	if p == nil {
		p = DefaultProfile()
	}
	if workers <= 0 {
		workers = runtime.NumCPU() * 4
	}
	return &Scanner{profile: p, sem: make(chan struct{}, workers)}
}

// walkState is the per-scan shared bookkeeping: global counters and the
// hardlink table that stops multiply-linked files being charged twice.
type walkState struct {
	files int64
	dirs  int64

	mu   sync.Mutex
	seen map[platform.InodeKey]struct{}
}

func (ws *walkState) firstSighting(key platform.InodeKey) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, dup := ws.seen[key]; dup {
		return false
	}
	ws.seen[key] = struct{}{}
	return true
}

// Scan walks path and returns its tree. The root must be a readable
// directory; cancellation aborts the walk and returns the context error.
func (s *Scanner) Scan(ctx context.Context, path string, opt Options) (*tree.RawNode, Stats, error) {
	start := time.Now()
	opt = opt.normalize()
	abs := platform.Impl.Canonicalize(path)

	fi, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Stats{}, fmt.Errorf("%s: %w", abs, ErrNotFound)
		}
		return nil, Stats{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !fi.IsDir() {
		return nil, Stats{}, fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}

	ws := &walkState{seen: make(map[platform.InodeKey]struct{})}
	root, err := s.walk(ctx, abs, opt, opt.Depth, ws)
	if err != nil {
		return nil, Stats{}, err
	}

	// A mount root gets the free-space slice so the chart shows the whole
	// disk, not just the used part.
	if platform.Impl.IsMountRoot(abs) {
		if du, err := disk.Usage(abs); err == nil {
			root.Children = append(root.Children, &tree.RawNode{
				Name: FreeSpaceName,
				Kind: tree.KindFree,
				Size: int64(du.Free),
			})
			root.HasChildren = true
		}
	}

	st := Stats{
		Files:   atomic.LoadInt64(&ws.files),
		Dirs:    atomic.LoadInt64(&ws.dirs),
		Bytes:   root.Size,
		Elapsed: time.Since(start),
	}
	return root, st, nil
}

// SizeOf totals a subtree without materializing nodes. The storage
// breakdown and cleanup probes use it where only the number matters.
func (s *Scanner) SizeOf(ctx context.Context, path string) (int64, error) {
	abs := platform.Impl.Canonicalize(path)
	ws := &walkState{seen: make(map[platform.InodeKey]struct{})}
	size, _, _, err := s.sizeOf(ctx, abs, ws)
	return size, err
}

// walk scans one directory. budget is the remaining number of levels to
// include; at 1 the children are summarized instead of listed.
func (s *Scanner) walk(ctx context.Context, abs string, opt Options, budget int, ws *walkState) (*tree.RawNode, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	atomic.AddInt64(&ws.dirs, 1)

	node := &tree.RawNode{
		Name: platform.Impl.BaseName(abs),
		Path: abs,
		Kind: tree.KindDirectory,
	}
	if fi, err := os.Lstat(abs); err == nil {
		node.ModTime = fi.ModTime().Unix()
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			// Unreadable directories stay visible so the user sees that
			// something is there, just not what.
			node.Kind = tree.KindProtected
			node.HasChildren = true
		}
		return node, nil
	}

	var (
		children   = make([]*tree.RawNode, 0, len(entries))
		subdirs    = make([]string, 0, 16)
		hiddenMass int64
		fileTotal  int
		dirTotal   int
	)

	for _, de := range entries {
		name := de.Name()
		full := filepath.Join(abs, name)

		if s.profile.Excluded(full) {
			continue
		}
		if s.profile.SkipHidden && s.profile.Hidden(name) {
			continue
		}
		if de.Type()&os.ModeSymlink != 0 {
			if child, size := s.resolveSymlink(full, ws); child != nil {
				children = append(children, child)
				node.Size += size
				fileTotal++
				atomic.AddInt64(&ws.files, 1)
			}
			continue
		}

		if de.IsDir() {
			if s.profile.SkipNetworkFS && platform.Impl.IsNetworkFS(full) {
				// Visible but not descended into.
				children = append(children, &tree.RawNode{
					Name: name, Path: full, Kind: tree.KindDirectory, HasChildren: true,
				})
				dirTotal++
				continue
			}
			subdirs = append(subdirs, full)
			continue
		}

		info, err := de.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		size := s.chargedSize(info, ws)
		atomic.AddInt64(&ws.files, 1)
		fileTotal++
		if s.profile.MinFileSize > 0 && size < s.profile.MinFileSize {
			// Too small to draw, but the bytes still belong to the parent.
			hiddenMass += size
			continue
		}
		children = append(children, &tree.RawNode{
			Name:      name,
			Path:      full,
			Kind:      tree.KindFile,
			Size:      size,
			Extension: extensionOf(name),
			ModTime:   info.ModTime().Unix(),
		})
		node.Size += size
	}

	// Subdirectories fan out over the shared pool. When no token is free
	// the caller's goroutine recurses synchronously, so the scan can never
	// deadlock waiting on itself.
	if len(subdirs) > 0 {
		results := make([]*tree.RawNode, len(subdirs))
		errs := make([]error, len(subdirs))
		var wg sync.WaitGroup

		scanOne := func(i int, dir string) {
			if budget > 1 {
				results[i], errs[i] = s.walk(ctx, dir, opt, budget-1, ws)
				return
			}
			results[i], errs[i] = s.summarize(ctx, dir, ws)
		}

		for i, dir := range subdirs {
			select {
			case s.sem <- struct{}{}:
				wg.Add(1)
				go func(i int, dir string) {
					defer wg.Done()
					defer func() { <-s.sem }()
					scanOne(i, dir)
				}(i, dir)
			default:
				scanOne(i, dir)
			}
		}
		wg.Wait()

		for i, child := range results {
			if errs[i] != nil {
				return nil, errs[i]
			}
			children = append(children, child)
			node.Size += child.Size
			fileTotal += child.FileCount
			dirTotal += 1 + child.DirCount
		}
	}

	node.Size += hiddenMass
	node.FileCount = fileTotal
	node.DirCount = dirTotal

	sortChildren(children)
	node.Children = truncateChildren(children, opt.MaxChildren)
	node.HasChildren = len(node.Children) > 0
	return node, nil
}

// summarize computes the full recursive size of a directory past the depth
// horizon, returning a childless stub. Sequential: everything above it is
// already running in the pool.
func (s *Scanner) summarize(ctx context.Context, abs string, ws *walkState) (*tree.RawNode, error) {
	atomic.AddInt64(&ws.dirs, 1)
	node := &tree.RawNode{
		Name:        platform.Impl.BaseName(abs),
		Path:        abs,
		Kind:        tree.KindDirectory,
		HasChildren: true,
	}
	if fi, err := os.Lstat(abs); err == nil {
		node.ModTime = fi.ModTime().Unix()
	}

	size, files, dirs, err := s.sizeOf(ctx, abs, ws)
	if err != nil {
		return nil, err
	}
	node.Size = size
	node.FileCount = files
	node.DirCount = dirs
	if files == 0 && dirs == 0 {
		// Could be empty or could be unreadable; ReadDir settles it.
		if _, rerr := os.ReadDir(abs); errors.Is(rerr, fs.ErrPermission) {
			node.Kind = tree.KindProtected
		} else if rerr == nil {
			node.HasChildren = false
		}
	}
	return node, nil
}

// sizeOf recursively totals a subtree without building nodes.
func (s *Scanner) sizeOf(ctx context.Context, abs string, ws *walkState) (int64, int, int, error) {
	select {
	case <-ctx.Done():
		return 0, 0, 0, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return 0, 0, 0, nil
	}

	var total int64
	var files, dirs int
	for _, de := range entries {
		name := de.Name()
		full := filepath.Join(abs, name)
		if s.profile.Excluded(full) {
			continue
		}
		if s.profile.SkipHidden && s.profile.Hidden(name) {
			continue
		}
		if de.Type()&os.ModeSymlink != 0 {
			if child, size := s.resolveSymlink(full, ws); child != nil {
				total += size
				files++
				atomic.AddInt64(&ws.files, 1)
			}
			continue
		}
		if de.IsDir() {
			if s.profile.SkipNetworkFS && platform.Impl.IsNetworkFS(full) {
				dirs++
				continue
			}
			atomic.AddInt64(&ws.dirs, 1)
			sub, f, d, err := s.sizeOf(ctx, full, ws)
			if err != nil {
				return 0, 0, 0, err
			}
			total += sub
			files += f
			dirs += 1 + d
			continue
		}
		info, err := de.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		total += s.chargedSize(info, ws)
		files++
		atomic.AddInt64(&ws.files, 1)
	}
	return total, files, dirs, nil
}

// resolveSymlink handles a symlink entry under the profile's policy.
// Links are skipped unless FollowSymlinks is set, and then only file
// targets are charged: following directory links invites cycles and
// double counting.
func (s *Scanner) resolveSymlink(full string, ws *walkState) (*tree.RawNode, int64) {
	if !s.profile.FollowSymlinks {
		return nil, 0
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return nil, 0
	}
	size := s.chargedSize(info, ws)
	return &tree.RawNode{
		Name:      filepath.Base(full),
		Path:      full,
		Kind:      tree.KindFile,
		Size:      size,
		Extension: extensionOf(filepath.Base(full)),
		ModTime:   info.ModTime().Unix(),
	}, size
}

// chargedSize is the allocation to attribute to this sighting of a file:
// full size the first time a multiply-linked inode appears, zero after.
func (s *Scanner) chargedSize(info os.FileInfo, ws *walkState) int64 {
	size := platform.Impl.AllocatedSize(info)
	if platform.Impl.HardLinks(info) > 1 {
		if key, ok := platform.Impl.InodeKeyOf(info); ok && !ws.firstSighting(key) {
			return 0
		}
	}
	return size
}

func extensionOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ".none"
	}
	return ext
}

// sortChildren orders directories before files, each group by size
// descending, matching what the charts expect.
func sortChildren(children []*tree.RawNode) {
	rank := func(n *tree.RawNode) int {
		if n.Kind == tree.KindDirectory {
			return 0
		}
		return 1
	}
	sort.SliceStable(children, func(i, j int) bool {
		ri, rj := rank(children[i]), rank(children[j])
		if ri != rj {
			return ri < rj
		}
		return children[i].Size > children[j].Size
	})
}

// truncateChildren folds everything past the cap into one bucket node so
// the parent's total survives the cut.
func truncateChildren(children []*tree.RawNode, max int) []*tree.RawNode {
	if len(children) <= max {
		return children
	}
	var extra int64
	for _, c := range children[max:] {
		extra += c.Size
	}
	kept := children[:max:max]
	return append(kept, &tree.RawNode{
		Name: fmt.Sprintf("… %d more items", len(children)-max),
		Kind: tree.KindOther,
		Size: extra,
	})
}
