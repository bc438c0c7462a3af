// Package diskinfo reports volume usage, a categorized storage breakdown,
// and the roots offered as scan starting points.
package diskinfo

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sync/errgroup"

	"spaceview/internal/palette"
	"spaceview/internal/platform"
)

// Sizer measures a subtree. scan.Scanner satisfies it.
type Sizer interface {
	SizeOf(ctx context.Context, path string) (int64, error)
}

// Info is the volume summary with its category breakdown.
type Info struct {
	Total      uint64     `json:"total"`
	Used       uint64     `json:"used"`
	Free       uint64     `json:"free"`
	Categories []Category `json:"categories"`
}

// Category is one slice of the storage bar.
type Category struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Color string `json:"color"`
}

// Root is a suggested scan starting point.
type Root struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// CleanTarget is a well-known reclaimable location and its current size.
type CleanTarget struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Exists bool   `json:"exists"`
}

// categoryWorkers bounds the parallel directory measurements.
const categoryWorkers = 8

func systemRoot() string {
	if runtime.GOOS == "windows" {
		if d := os.Getenv("SystemDrive"); d != "" {
			return d + `\`
		}
		return `C:\`
	}
	return "/"
}

// Roots lists the home directory, the volume root, the common user
// directories that exist, and every physical mount point.
func Roots() []Root {
	out := []Root{}
	seen := map[string]bool{}
	add := func(name, path string) {
		if path == "" || seen[path] {
			return
		}
		if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
			return
		}
		seen[path] = true
		out = append(out, Root{Name: name, Path: path})
	}

	home, _ := os.UserHomeDir()
	add("Home", home)
	add(systemRoot(), systemRoot())
	for _, name := range []string{
		"Desktop", "Documents", "Downloads", "Movies", "Videos",
		"Music", "Pictures", "Library",
	} {
		add(name, filepath.Join(home, name))
	}

	if parts, err := disk.Partitions(false); err == nil {
		for _, p := range parts {
			if platform.Impl.IsNetworkFS(p.Mountpoint) {
				continue
			}
			add(platform.Impl.BaseName(p.Mountpoint), p.Mountpoint)
		}
	}
	return out
}

// Usage returns raw volume numbers for path's filesystem.
func Usage(path string) (Info, error) {
	du, err := disk.Usage(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Total: du.Total, Used: du.Used, Free: du.Free}, nil
}

// categoryDirs maps well-known directories to storage categories. Home-
// relative entries are joined against the user home; absolute entries are
// used as-is.
func categoryDirs(home string) map[string]string {
	dirs := map[string]string{
		filepath.Join(home, "Documents"): "Documents",
		filepath.Join(home, "Desktop"):   "Documents",
		filepath.Join(home, "Pictures"):  "Photos",
		filepath.Join(home, "Music"):     "Music",
		filepath.Join(home, "Downloads"): "Other",
		filepath.Join(home, "Movies"):    "Videos",
		filepath.Join(home, "Videos"):    "Videos",
	}
	switch runtime.GOOS {
	case "darwin":
		dirs["/Applications"] = "Apps"
		dirs[filepath.Join(home, "Applications")] = "Apps"
		dirs[filepath.Join(home, "Library")] = "System"
	case "linux":
		dirs[filepath.Join(home, ".cache")] = "System"
		dirs[filepath.Join(home, ".local")] = "System"
		dirs[filepath.Join(home, "go")] = "Developer"
		dirs[filepath.Join(home, "src")] = "Developer"
	}
	return dirs
}

// Collect measures the volume and builds the category breakdown: known
// directories are sized in parallel, loose files in the home root are
// categorized by extension, and whatever remains of the used space is
// attributed to System so the bar always sums to the volume's usage.
func Collect(ctx context.Context, sizer Sizer) (Info, error) {
	info, err := Usage(systemRoot())
	if err != nil {
		return Info{}, err
	}

	home, _ := os.UserHomeDir()
	sizes := make(map[string]int64, 16)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(categoryWorkers)
	measure := func(dir, cat string) {
		g.Go(func() error {
			n, err := sizer.SizeOf(gctx, dir)
			if err != nil {
				return err
			}
			mu.Lock()
			sizes[cat] += n
			mu.Unlock()
			return nil
		})
	}

	dirs := categoryDirs(home)
	claimed := make(map[string]bool, len(dirs))
	for dir, cat := range dirs {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			continue
		}
		if filepath.Dir(dir) == home {
			claimed[filepath.Base(dir)] = true
		}
		measure(dir, cat)
	}

	// Everything else directly under home: unknown directories count as
	// Other, loose files go by extension.
	if entries, err := os.ReadDir(home); err == nil {
		for _, de := range entries {
			if claimed[de.Name()] || de.Name() == ".DS_Store" {
				continue
			}
			full := filepath.Join(home, de.Name())
			if de.IsDir() {
				measure(full, "Other")
				continue
			}
			fi, err := de.Info()
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
			cat := palette.CategoryFor(filepath.Ext(de.Name()))
			mu.Lock()
			sizes[cat] += platform.Impl.AllocatedSize(fi)
			mu.Unlock()
		}
	}

	if err := g.Wait(); err != nil {
		return Info{}, err
	}

	var categorized int64
	for _, n := range sizes {
		categorized += n
	}
	if remaining := int64(info.Used) - categorized; remaining > 0 {
		sizes["System"] += remaining
	}

	for name, n := range sizes {
		if n <= 0 {
			continue
		}
		info.Categories = append(info.Categories, Category{
			Name:  name,
			Size:  n,
			Color: palette.CategoryColor(name),
		})
	}
	sort.Slice(info.Categories, func(i, j int) bool {
		return info.Categories[i].Size > info.Categories[j].Size
	})
	return info, nil
}

// cleanSpots is the per-OS table behind CleanTargets.
func cleanSpots(home string) []CleanTarget {
	switch runtime.GOOS {
	case "darwin":
		return []CleanTarget{
			{ID: "user_caches", Name: "User Caches", Path: filepath.Join(home, "Library/Caches")},
			{ID: "user_logs", Name: "User Logs", Path: filepath.Join(home, "Library/Logs")},
			{ID: "trash", Name: "Trash", Path: filepath.Join(home, ".Trash")},
			{ID: "downloads", Name: "Downloads", Path: filepath.Join(home, "Downloads")},
		}
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		return []CleanTarget{
			{ID: "user_caches", Name: "Temp Files", Path: filepath.Join(local, "Temp")},
			{ID: "downloads", Name: "Downloads", Path: filepath.Join(home, "Downloads")},
		}
	default:
		return []CleanTarget{
			{ID: "user_caches", Name: "User Caches", Path: filepath.Join(home, ".cache")},
			{ID: "trash", Name: "Trash", Path: filepath.Join(home, ".local/share/Trash")},
			{ID: "downloads", Name: "Downloads", Path: filepath.Join(home, "Downloads")},
			{ID: "tmp", Name: "Temp Files", Path: "/tmp"},
		}
	}
}

// CleanTargets sizes the usual reclaimable locations.
func CleanTargets(ctx context.Context, sizer Sizer) []CleanTarget {
	home, _ := os.UserHomeDir()
	targets := cleanSpots(home)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(categoryWorkers)
	for i := range targets {
		t := &targets[i]
		if fi, err := os.Stat(t.Path); err != nil || !fi.IsDir() {
			continue
		}
		t.Exists = true
		g.Go(func() error {
			if n, err := sizer.SizeOf(gctx, t.Path); err == nil {
				t.Size = n
			}
			return nil
		})
	}
	_ = g.Wait()
	return targets
}
