// Package tree defines the wire contract for scanned filesystem trees and
// builds the flat hierarchy every layout engine consumes.
package tree

import (
	"strings"

	"spaceview/internal/palette"
	"spaceview/internal/scale"
)

// Kind classifies a node on the wire.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
	// KindOther is the aggregation bucket a scanner emits when a directory
	// holds more children than it is willing to report ("… N more items").
	KindOther Kind = "other"
	// KindFree is the synthetic free-disk-space node injected at mount roots.
	KindFree      Kind = "free"
	KindProtected Kind = "protected"
)

// RawNode is one node of a scan result as it travels over the wire.
// Scanners produce it, the builder consumes it.
type RawNode struct {
	Name      string     `json:"name"`
	Path      string     `json:"path,omitempty"`
	Kind      Kind       `json:"type"`
	Size      int64      `json:"size"`
	Extension string     `json:"extension,omitempty"`
	Children  []*RawNode `json:"children,omitempty"`
	// HasChildren marks a depth-truncated directory that does have entries
	// on disk even though Children is empty here.
	HasChildren bool  `json:"has_children,omitempty"`
	FileCount   int   `json:"file_count,omitempty"`
	DirCount    int   `json:"dir_count,omitempty"`
	ModTime     int64 `json:"mod_time,omitempty"`
}

// Node is one arena entry. Parent and Children are indices into the same
// arena; Parent is -1 at the root.
type Node struct {
	ID       int
	Parent   int
	Children []int
	Depth    int

	Name        string
	Path        string
	Kind        Kind
	Size        int64
	Extension   string
	HasChildren bool
	FileCount   int
	DirCount    int
	ModTime     int64

	// Weight is scale(Size) for structural leaves and 0 for containers.
	// AggregateWeight sums the subtree's leaf weights; engines divide by it.
	Weight          float64
	AggregateWeight float64

	Color string
}

// IsLeaf reports whether the node has no children in this hierarchy.
// A depth-truncated directory is a leaf here but keeps HasChildren set.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Navigable reports whether clicking the node should descend into it.
// Only real directories navigate; files, free-space and truncation buckets
// select instead. The shell rescans when a navigable leaf has HasChildren.
func (n *Node) Navigable() bool {
	return n.Kind == KindDirectory
}

// Hierarchy is the immutable arena a build produces: nodes[id].ID == id,
// parents always precede their children. Callers replace the whole value
// on rescan instead of mutating it.
type Hierarchy struct {
	nodes  []Node
	byPath map[string]int
}

func (h *Hierarchy) Len() int { return len(h.nodes) }

// Node returns the arena entry for id, nil when out of range.
func (h *Hierarchy) Node(id int) *Node {
	if id < 0 || id >= len(h.nodes) {
		return nil
	}
	return &h.nodes[id]
}

// Root returns the root entry; every hierarchy has one.
func (h *Hierarchy) Root() *Node { return &h.nodes[0] }

// Find resolves an absolute path to a node ID.
func (h *Hierarchy) Find(path string) (int, bool) {
	id, ok := h.byPath[path]
	return id, ok
}

// Ancestors returns the parent chain of id, nearest first, root last.
func (h *Hierarchy) Ancestors(id int) []int {
	out := make([]int, 0, 8)
	n := h.Node(id)
	if n == nil {
		return out
	}
	for p := n.Parent; p >= 0; p = h.nodes[p].Parent {
		out = append(out, p)
	}
	return out
}

// Chain returns id followed by its ancestors up to the root. This is the
// hover-highlight chain: the node plus every enclosing container.
func (h *Hierarchy) Chain(id int) []int {
	if h.Node(id) == nil {
		return nil
	}
	return append([]int{id}, h.Ancestors(id)...)
}

// Leaves collects the structural leaves under from, in arena order.
func (h *Hierarchy) Leaves(from int) []int {
	out := make([]int, 0, 64)
	h.Walk(from, func(n *Node) bool {
		if n.IsLeaf() {
			out = append(out, n.ID)
		}
		return true
	})
	return out
}

// Walk visits from and its subtree depth-first. Returning false from fn
// skips the node's children.
func (h *Hierarchy) Walk(from int, fn func(n *Node) bool) {
	if h.Node(from) == nil {
		return
	}
	stack := append(make([]int, 0, 64), from)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &h.nodes[id]
		if !fn(n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Builder turns a RawNode tree into a Hierarchy. The zero value works:
// cube-root weights, depth capped at DefaultMaxDepth, palette colors on.
type Builder struct {
	// Scale converts leaf sizes to weights; nil means scale.CubeRoot(1).
	Scale scale.Func
	// MaxDepth drops anything nested deeper; <=0 means DefaultMaxDepth.
	// The cut-off parent becomes a leaf and keeps its aggregate size.
	MaxDepth int
	// SkipColors leaves Node.Color empty (server-side layouts that let the
	// client restyle set this).
	SkipColors bool
}

// DefaultMaxDepth bounds hierarchy depth against pathological nesting.
const DefaultMaxDepth = 64

// Build constructs the arena. It never fails: nil input becomes a single
// empty root, malformed fields are coerced (negative size to 0, unknown
// kind to file or directory by shape), and children are sorted by
// aggregate weight descending so every engine sees the same order.
func (b Builder) Build(root *RawNode) *Hierarchy {
	scaleFn := b.Scale
	if scaleFn == nil {
		scaleFn = scale.CubeRoot(scale.DefaultFloor)
	}
	maxDepth := b.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if root == nil {
		root = &RawNode{Name: "(empty)", Kind: KindDirectory}
	}

	h := &Hierarchy{
		nodes:  make([]Node, 0, 4096),
		byPath: make(map[string]int, 4096),
	}

	type item struct {
		raw    *RawNode
		parent int
		depth  int
	}
	stack := []item{{raw: root, parent: -1, depth: 0}}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := len(h.nodes)
		h.nodes = append(h.nodes, coerce(it.raw, id, it.parent, it.depth))
		n := &h.nodes[id]
		if it.parent >= 0 {
			h.nodes[it.parent].Children = append(h.nodes[it.parent].Children, id)
		}
		if n.Path != "" {
			if _, dup := h.byPath[n.Path]; !dup {
				h.byPath[n.Path] = id
			}
		}

		if it.depth >= maxDepth {
			n.HasChildren = n.HasChildren || len(it.raw.Children) > 0
			continue
		}
		// Reverse push keeps the arena in document order, which makes
		// "parents precede children" hold for the whole slice.
		for i := len(it.raw.Children) - 1; i >= 0; i-- {
			if it.raw.Children[i] == nil {
				continue
			}
			stack = append(stack, item{raw: it.raw.Children[i], parent: id, depth: it.depth + 1})
		}
	}

	b.finish(h, scaleFn)
	return h
}

// finish runs the bottom-up passes: leaf weights, aggregate sums, child
// ordering, colors. Parents precede children in the arena, so one reverse
// sweep settles every aggregate.
func (b Builder) finish(h *Hierarchy, scaleFn scale.Func) {
	for i := len(h.nodes) - 1; i >= 0; i-- {
		n := &h.nodes[i]
		if n.IsLeaf() {
			n.Weight = scaleFn(n.Size)
			n.AggregateWeight = n.Weight
		}
		if n.Parent >= 0 {
			h.nodes[n.Parent].AggregateWeight += n.AggregateWeight
		}
	}
	for i := range h.nodes {
		n := &h.nodes[i]
		sortByAggregate(h, n.Children)
		if !b.SkipColors {
			n.Color = colorFor(n)
		}
	}
}

// sortByAggregate orders sibling IDs by aggregate weight descending,
// insertion-sorted because it must be stable and sibling runs are short.
func sortByAggregate(h *Hierarchy, ids []int) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && h.nodes[ids[j]].AggregateWeight > h.nodes[ids[j-1]].AggregateWeight; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func colorFor(n *Node) string {
	switch n.Kind {
	case KindFree:
		return palette.FreeSpaceColor
	case KindOther:
		return palette.OtherColor
	case KindProtected:
		return palette.ProtectedColor
	case KindDirectory:
		return palette.ForDirectory(n.Name)
	default:
		return palette.ForFile(n.Extension)
	}
}

// coerce converts one RawNode into an arena entry, normalizing whatever a
// sloppy producer sent rather than failing the whole build.
func coerce(raw *RawNode, id, parent, depth int) Node {
	size := raw.Size
	if size < 0 {
		size = 0
	}
	kind := raw.Kind
	switch kind {
	case KindDirectory, KindFile, KindOther, KindFree, KindProtected:
	default:
		if len(raw.Children) > 0 || raw.HasChildren {
			kind = KindDirectory
		} else {
			kind = KindFile
		}
	}
	return Node{
		ID:          id,
		Parent:      parent,
		Depth:       depth,
		Name:        raw.Name,
		Path:        raw.Path,
		Kind:        kind,
		Size:        size,
		Extension:   strings.ToLower(raw.Extension),
		HasChildren: raw.HasChildren,
		FileCount:   raw.FileCount,
		DirCount:    raw.DirCount,
		ModTime:     raw.ModTime,
	}
}
