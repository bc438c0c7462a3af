package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceview/internal/platform"
	"spaceview/internal/tree"
)

// writeFile creates a file of n bytes under dir, creating parents.
func writeFile(t *testing.T, dir, rel string, n int) string {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, make([]byte, n), 0o644))
	return full
}

func childNamed(n *tree.RawNode, name string) *tree.RawNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sumSizes(children []*tree.RawNode) int64 {
	var total int64
	for _, c := range children {
		total += c.Size
	}
	return total
}

func TestScanTreeShapeAndOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/report.pdf", 200<<10)
	writeFile(t, root, "docs/notes.txt", 64<<10)
	writeFile(t, root, "big.bin", 300<<10)
	writeFile(t, root, "README", 1<<10)
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	s := New(&Profile{}, 4)
	got, st, err := s.Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, tree.KindDirectory, got.Kind)
	assert.Equal(t, root, got.Path)
	require.Len(t, got.Children, 4)

	// Directories lead, then files by size descending.
	assert.Equal(t, "docs", got.Children[0].Name)
	assert.Equal(t, "empty", got.Children[1].Name)
	assert.Equal(t, "big.bin", got.Children[2].Name)
	assert.Equal(t, "README", got.Children[3].Name)

	assert.Equal(t, ".bin", got.Children[2].Extension)
	assert.Equal(t, ".none", got.Children[3].Extension, "extensionless files get the sentinel")

	docs := childNamed(got, "docs")
	assert.Equal(t, sumSizes(docs.Children), docs.Size, "directory size is the sum of its children")
	assert.Equal(t, sumSizes(got.Children), got.Size)

	assert.Equal(t, 4, got.FileCount)
	assert.Equal(t, 2, got.DirCount)
	assert.Equal(t, int64(4), st.Files)
	assert.Equal(t, int64(3), st.Dirs, "stats count the root itself")
	assert.Equal(t, got.Size, st.Bytes)
	assert.NotZero(t, got.ModTime)

	empty := childNamed(got, "empty")
	assert.False(t, empty.HasChildren)
	assert.Zero(t, empty.Size)
}

func TestScanDepthHorizonEmitsStubs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "l1/l2/deep.dat", 128<<10)
	writeFile(t, root, "l1/shallow.dat", 64<<10)

	s := New(&Profile{}, 2)

	got, _, err := s.Scan(context.Background(), root, Options{Depth: 1})
	require.NoError(t, err)
	l1 := childNamed(got, "l1")
	require.NotNil(t, l1)
	assert.Empty(t, l1.Children, "past the horizon only the summary survives")
	assert.True(t, l1.HasChildren)
	assert.Equal(t, 2, l1.FileCount)
	assert.Equal(t, 1, l1.DirCount)
	assert.Positive(t, l1.Size)

	got2, _, err := s.Scan(context.Background(), root, Options{Depth: 2})
	require.NoError(t, err)
	l1 = childNamed(got2, "l1")
	require.NotNil(t, l1)
	require.Len(t, l1.Children, 2)
	l2 := childNamed(l1, "l2")
	assert.True(t, l2.HasChildren)
	assert.Empty(t, l2.Children)
	assert.Equal(t, got.Size, got2.Size, "the horizon changes detail, never totals")
}

func TestScanTruncationFoldsOverflowIntoBucket(t *testing.T) {
	root := t.TempDir()
	for i := 1; i <= 8; i++ {
		writeFile(t, root, "f"+string(rune('a'+i-1))+".dat", i*64<<10)
	}

	s := New(&Profile{}, 2)
	got, _, err := s.Scan(context.Background(), root, Options{MaxChildren: 5})
	require.NoError(t, err)

	require.Len(t, got.Children, 6, "five kept plus the bucket")
	bucket := got.Children[5]
	assert.Equal(t, tree.KindOther, bucket.Kind)
	assert.Equal(t, "… 3 more items", bucket.Name)
	assert.Empty(t, bucket.Path)

	assert.Equal(t, sumSizes(got.Children), got.Size, "the bucket keeps totals exact")
	for i := 0; i < 4; i++ {
		assert.GreaterOrEqual(t, got.Children[i].Size, got.Children[i+1].Size)
	}
}

func TestScanRejectsMissingAndNonDirectoryTargets(t *testing.T) {
	s := New(&Profile{}, 1)

	_, _, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "gone"), Options{})
	assert.ErrorIs(t, err, ErrNotFound)

	f := writeFile(t, t.TempDir(), "plain.txt", 10)
	_, _, err = s.Scan(context.Background(), f, Options{})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestScanHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b/c.dat", 1<<10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(&Profile{}, 2)
	_, _, err := s.Scan(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanExclusionsAndHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep/data.bin", 64<<10)
	writeFile(t, root, "noise/cache.bin", 64<<10)
	writeFile(t, root, ".secret/hidden.bin", 64<<10)
	writeFile(t, root, "app.log", 64<<10)
	writeFile(t, root, ".dotfile", 64<<10)

	p := &Profile{
		ExcludedPaths: []string{filepath.Join(root, "noise")},
		ExcludeGlobs:  []string{"*.log"},
		SkipHidden:    true,
	}
	s := New(p, 2)
	got, _, err := s.Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	require.Len(t, got.Children, 1)
	assert.Equal(t, "keep", got.Children[0].Name)
	keep := got.Children[0]
	assert.Equal(t, keep.Size, got.Size, "excluded mass does not leak into totals")
}

func TestScanMinFileSizeHidesNodesNotBytes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "large.bin", 256<<10)
	writeFile(t, root, "tiny.bin", 4<<10)

	s := New(&Profile{MinFileSize: 64 << 10}, 1)
	got, st, err := s.Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	require.Len(t, got.Children, 1)
	assert.Equal(t, "large.bin", got.Children[0].Name)
	assert.Greater(t, got.Size, got.Children[0].Size, "the tiny file's bytes stay in the parent")
	assert.Equal(t, int64(2), st.Files, "hidden files still count as files")
	assert.Equal(t, 2, got.FileCount)
}

func TestScanChargesHardlinkedInodeOnce(t *testing.T) {
	root := t.TempDir()
	first := writeFile(t, root, "a/original.dat", 128<<10)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	if err := os.Link(first, filepath.Join(root, "b", "alias.dat")); err != nil {
		t.Skipf("hardlinks unsupported here: %v", err)
	}

	s := New(&Profile{}, 4)
	got, _, err := s.Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	a := childNamed(got, "a")
	b := childNamed(got, "b")
	require.NotNil(t, a)
	require.NotNil(t, b)
	orig := childNamed(a, "original.dat")
	alias := childNamed(b, "alias.dat")
	require.NotNil(t, orig)
	require.NotNil(t, alias)

	// Whichever subtree got there first carries the bytes; the other
	// sighting is free. The disk total is charged exactly once.
	charged := orig.Size + alias.Size
	assert.Equal(t, got.Size, charged)
	assert.Zero(t, min(orig.Size, alias.Size))
	assert.Positive(t, max(orig.Size, alias.Size))
}

func TestScanInjectsFreeSpaceAtMountRoots(t *testing.T) {
	old := platform.Impl
	platform.Impl = mountRootFake{old}
	defer func() { platform.Impl = old }()

	root := t.TempDir()
	writeFile(t, root, "used.bin", 64<<10)

	s := New(&Profile{}, 1)
	got, _, err := s.Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	free := got.Children[len(got.Children)-1]
	assert.Equal(t, FreeSpaceName, free.Name)
	assert.Equal(t, tree.KindFree, free.Kind)
	assert.Positive(t, free.Size)
}

func TestScanSymlinkPolicy(t *testing.T) {
	root := t.TempDir()
	target := writeFile(t, root, "real/data.bin", 64<<10)
	if err := os.Symlink(target, filepath.Join(root, "link.bin")); err != nil {
		t.Skipf("symlinks unsupported here: %v", err)
	}

	s := New(&Profile{}, 2)
	got, _, err := s.Scan(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Nil(t, childNamed(got, "link.bin"), "links are skipped by default")

	s = New(&Profile{FollowSymlinks: true}, 2)
	got, _, err = s.Scan(context.Background(), root, Options{})
	require.NoError(t, err)
	link := childNamed(got, "link.bin")
	require.NotNil(t, link)
	assert.Equal(t, tree.KindFile, link.Kind)
}

type mountRootFake struct{ platform.API }

func (mountRootFake) IsMountRoot(string) bool { return true }
