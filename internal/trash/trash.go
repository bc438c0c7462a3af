// Package trash deletes files either recoverably or permanently.
//
// Recoverable deletes move the target into a private trash directory and
// write a sidecar recording where it came from, so List and Restore can
// undo them. Permanent deletes remove as much as possible and report
// whatever survived instead of failing the whole request: a tree that is
// 99% deletable should not stay at 100% because one file is locked.
package trash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"spaceview/internal/platform"
)

// ErrProtected rejects deletion of critical system paths.
var ErrProtected = errors.New("protected path")

// Deleter is the deletion contract shells consume; *Bin implements it
// locally and the API client implements it against a remote server.
type Deleter interface {
	Delete(ctx context.Context, path string, permanent bool) (Result, error)
}

// Delete methods reported in Result.
const (
	MethodTrash     = "trash"
	MethodPermanent = "permanent"
)

// Result describes what a delete accomplished.
type Result struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
	Message string `json:"message"`
	// Skipped lists paths that could not be removed or moved.
	Skipped []string `json:"skipped,omitempty"`
}

// Entry is one recoverable item.
type Entry struct {
	Name         string    `json:"name"`
	TrashName    string    `json:"trash_name"`
	OriginalPath string    `json:"original_path"`
	Size         int64     `json:"size"`
	IsDir        bool      `json:"is_dir"`
	DeletedAt    time.Time `json:"deleted_at"`
}

type sidecar struct {
	OriginalPath string    `json:"original_path"`
	Size         int64     `json:"size"`
	IsDir        bool      `json:"is_dir"`
	DeletedAt    time.Time `json:"deleted_at"`
}

// Bin is one trash directory with its protection list.
type Bin struct {
	files     string
	info      string
	protected map[string]struct{}
}

// New opens (creating if needed) the trash under dir; an empty dir uses
// the XDG data home. The returned bin protects the standard system paths.
func New(dir string) (*Bin, error) {
	if dir == "" {
		dir = filepath.Join(xdg.DataHome, "spaceview", "trash")
	}
	b := &Bin{
		files:     filepath.Join(dir, "files"),
		info:      filepath.Join(dir, "info"),
		protected: defaultProtected(),
	}
	if err := os.MkdirAll(b.files, 0o755); err != nil {
		return nil, fmt.Errorf("create trash: %w", err)
	}
	if err := os.MkdirAll(b.info, 0o755); err != nil {
		return nil, fmt.Errorf("create trash: %w", err)
	}
	return b, nil
}

func defaultProtected() map[string]struct{} {
	set := map[string]struct{}{}
	add := func(p string) {
		if p != "" {
			set[platform.Impl.Canonicalize(p)] = struct{}{}
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		add(home)
	}
	switch runtime.GOOS {
	case "windows":
		sys := os.Getenv("SystemDrive")
		if sys == "" {
			sys = "C:"
		}
		for _, p := range []string{sys + `\`, sys + `\Windows`, sys + `\Program Files`, sys + `\Program Files (x86)`, sys + `\Users`} {
			add(p)
		}
	default:
		for _, p := range []string{
			"/", "/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/lib64",
			"/opt", "/private", "/proc", "/root", "/sbin", "/srv", "/sys",
			"/tmp", "/usr", "/var",
			"/Applications", "/Library", "/System", "/Users", "/Volumes",
		} {
			add(p)
		}
	}
	return set
}

// Protect adds paths (from config) to the blocklist.
func (b *Bin) Protect(paths ...string) {
	for _, p := range paths {
		if p != "" {
			b.protected[platform.Impl.Canonicalize(p)] = struct{}{}
		}
	}
}

// Protected reports whether path may never be deleted.
func (b *Bin) Protected(path string) bool {
	_, hit := b.protected[platform.Impl.Canonicalize(path)]
	return hit
}

// Delete removes path, recoverably unless permanent is set.
func (b *Bin) Delete(ctx context.Context, path string, permanent bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	abs := platform.Impl.Canonicalize(path)
	if b.Protected(abs) {
		return Result{}, fmt.Errorf("%s: %w", abs, ErrProtected)
	}
	fi, err := os.Lstat(abs)
	if err != nil {
		return Result{}, fmt.Errorf("delete %s: %w", abs, err)
	}

	if permanent {
		return b.remove(abs)
	}
	return b.toTrash(ctx, abs, fi)
}

// remove deletes permanently, collecting survivors on partial failure.
func (b *Bin) remove(abs string) (Result, error) {
	base := filepath.Base(abs)
	err := os.RemoveAll(abs)
	if _, gone := os.Lstat(abs); gone != nil {
		return Result{
			Success: true,
			Method:  MethodPermanent,
			Message: "Permanently deleted: " + base,
		}, nil
	}

	skipped := survivors(abs)
	if err != nil && len(skipped) == 0 {
		return Result{}, fmt.Errorf("delete %s: %w", abs, err)
	}
	return Result{
		Success: true,
		Method:  MethodPermanent,
		Message: fmt.Sprintf("Partially deleted (%d item(s) could not be removed)", len(skipped)),
		Skipped: skipped,
	}, nil
}

// toTrash moves the target into the bin and writes its sidecar.
func (b *Bin) toTrash(ctx context.Context, abs string, fi os.FileInfo) (Result, error) {
	base := filepath.Base(abs)
	dest := uniquePath(filepath.Join(b.files, base))

	if err := os.Rename(abs, dest); err != nil {
		// Cross-device moves fall back to copy and delete.
		if cErr := copyTree(ctx, abs, dest); cErr != nil {
			os.RemoveAll(dest)
			return Result{}, fmt.Errorf("trash %s: %w", abs, err)
		}
		if rErr := os.RemoveAll(abs); rErr != nil {
			skipped := survivors(abs)
			b.writeSidecar(dest, abs, fi)
			return Result{
				Success: true,
				Method:  MethodTrash,
				Message: fmt.Sprintf("Partially trashed (%d item(s) left behind)", len(skipped)),
				Skipped: skipped,
			}, nil
		}
	}

	if err := b.writeSidecar(dest, abs, fi); err != nil {
		return Result{}, err
	}
	return Result{
		Success: true,
		Method:  MethodTrash,
		Message: "Moved to Trash: " + base,
	}, nil
}

func (b *Bin) writeSidecar(dest, original string, fi os.FileInfo) error {
	meta := sidecar{
		OriginalPath: original,
		Size:         sizeOfTree(dest),
		IsDir:        fi.IsDir(),
		DeletedAt:    time.Now(),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	name := filepath.Base(dest) + ".meta.json"
	if err := os.WriteFile(filepath.Join(b.info, name), data, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// List returns the recoverable entries, newest first.
func (b *Bin) List() ([]Entry, error) {
	des, err := os.ReadDir(b.info)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if !strings.HasSuffix(de.Name(), ".meta.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.info, de.Name()))
		if err != nil {
			continue
		}
		var meta sidecar
		if json.Unmarshal(data, &meta) != nil {
			continue
		}
		trashName := strings.TrimSuffix(de.Name(), ".meta.json")
		entries = append(entries, Entry{
			Name:         filepath.Base(meta.OriginalPath),
			TrashName:    trashName,
			OriginalPath: meta.OriginalPath,
			Size:         meta.Size,
			IsDir:        meta.IsDir,
			DeletedAt:    meta.DeletedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DeletedAt.After(entries[j].DeletedAt)
	})
	return entries, nil
}

// Restore moves a trashed entry back where it came from and returns the
// restored path, which gets a numeric suffix if the original reappeared.
func (b *Bin) Restore(ctx context.Context, trashName string) (string, error) {
	metaPath := filepath.Join(b.info, trashName+".meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return "", fmt.Errorf("restore %s: %w", trashName, err)
	}
	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", fmt.Errorf("restore %s: bad sidecar: %w", trashName, err)
	}

	dest := uniquePath(meta.OriginalPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("restore %s: %w", trashName, err)
	}
	src := filepath.Join(b.files, trashName)
	if err := os.Rename(src, dest); err != nil {
		if cErr := copyTree(ctx, src, dest); cErr != nil {
			return "", fmt.Errorf("restore %s: %w", trashName, err)
		}
		os.RemoveAll(src)
	}
	os.Remove(metaPath)
	return dest, nil
}

// Purge permanently removes one trashed entry.
func (b *Bin) Purge(trashName string) error {
	if err := os.RemoveAll(filepath.Join(b.files, trashName)); err != nil {
		return fmt.Errorf("purge %s: %w", trashName, err)
	}
	os.Remove(filepath.Join(b.info, trashName+".meta.json"))
	return nil
}

// Empty permanently removes everything in the bin.
func (b *Bin) Empty() error {
	entries, err := b.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := b.Purge(e.TrashName); err != nil {
			return err
		}
	}
	return nil
}

// uniquePath appends " 1", " 2", … before the extension until the name is
// free, so trashing two files called report.pdf keeps both.
func uniquePath(p string) string {
	if _, err := os.Lstat(p); err != nil {
		return p
	}
	dir := filepath.Dir(p)
	ext := filepath.Ext(p)
	stem := strings.TrimSuffix(filepath.Base(p), ext)
	for i := 1; ; i++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s %d%s", stem, i, ext))
		if _, err := os.Lstat(cand); err != nil {
			return cand
		}
	}
}

// survivors collects what is left under a partially deleted target.
func survivors(abs string) []string {
	var out []string
	filepath.WalkDir(abs, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !de.IsDir() {
			out = append(out, p)
		}
		return nil
	})
	if len(out) == 0 {
		if _, err := os.Lstat(abs); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

func sizeOfTree(abs string) int64 {
	var total int64
	filepath.WalkDir(abs, func(p string, de fs.DirEntry, err error) error {
		if err != nil || de.IsDir() {
			return nil
		}
		if info, err := de.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// copyTree duplicates src at dst, preserving modes. Symlinks are copied
// as links. Cancellation is checked per directory so a huge cross-device
// move can be abandoned.
func copyTree(ctx context.Context, src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	case fi.IsDir():
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(dst, fi.Mode().Perm()); err != nil {
			return err
		}
		des, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, de := range des {
			if err := copyTree(ctx, filepath.Join(src, de.Name()), filepath.Join(dst, de.Name())); err != nil {
				return err
			}
		}
		return nil
	default:
		return copyFile(src, dst, fi.Mode().Perm())
	}
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
