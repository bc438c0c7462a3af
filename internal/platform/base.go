// Package platform isolates the OS-specific corners of disk scanning and
// shell integration: on-disk allocation size, hardlink identity, mount
// detection, and revealing paths in the system file browser. Everything
// else in the module is portable and talks to the Impl interface value.
package platform

import (
	"os"
	"os/exec"
	"path/filepath"
)

// InodeKey identifies a file across hardlinks so multiply-linked files
// are charged once per scan.
type InodeKey struct{ Dev, Ino uint64 }

type API interface {
	// AllocatedSize is the on-disk footprint of a file, which for sparse
	// or tail-packed files differs from the logical size.
	AllocatedSize(os.FileInfo) int64
	// InodeKeyOf reports a stable identity for hardlink deduplication,
	// or false where the OS offers none.
	InodeKeyOf(os.FileInfo) (InodeKey, bool)
	// HardLinks is the link count of a file; scanners consult the dedup
	// table only when it exceeds one.
	HardLinks(os.FileInfo) uint64
	BaseName(string) string
	IsMountRoot(string) bool
	// IsNetworkFS reports whether a path likely lives on a remote or
	// virtual filesystem that a local-disk scan should not descend into.
	IsNetworkFS(string) bool
	OpenInFileBrowser(string) error
	Canonicalize(string) string
	DefaultStartPath() string
}

// Default is the POSIX-ish fallback used where no per-OS override exists.
type Default struct{}

func (Default) AllocatedSize(fi os.FileInfo) int64      { return fi.Size() }
func (Default) InodeKeyOf(os.FileInfo) (InodeKey, bool) { return InodeKey{}, false }
func (Default) HardLinks(os.FileInfo) uint64            { return 1 }
func (Default) IsNetworkFS(string) bool                 { return false }

func (Default) BaseName(p string) string {
	b := filepath.Base(p)
	if b == "." || b == string(os.PathSeparator) || b == "" {
		return "/"
	}
	return b
}

func (Default) IsMountRoot(p string) bool {
	p, _ = filepath.Abs(p)
	return filepath.Clean(p) == "/"
}

func (Default) OpenInFileBrowser(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return exec.Command("xdg-open", p).Run()
	}
	return exec.Command("xdg-open", filepath.Dir(p)).Run()
}

func (Default) Canonicalize(p string) string {
	abs, _ := filepath.Abs(p)
	return filepath.Clean(abs)
}

func (Default) DefaultStartPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		if fi, err := os.Stat(h); err == nil && fi.IsDir() {
			return h
		}
	}
	return string(os.PathSeparator)
}

// Impl is the active implementation, overridden by per-OS init().
var Impl API = Default{}
