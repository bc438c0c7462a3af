package scan

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Profile decides what a scan looks at. The zero value scans everything;
// DefaultProfile applies the per-OS exclusions that keep virtual
// filesystems and OS-internal churn out of the picture.
type Profile struct {
	// ExcludedPaths are absolute prefixes never descended into.
	ExcludedPaths []string
	// SkipNames are bare names ignored wherever they appear. These are
	// metadata droppings with no real mass, not a way to hide data.
	SkipNames []string
	// ExcludeGlobs are user patterns matched against the absolute path,
	// e.g. "**/node_modules" or "*.iso".
	ExcludeGlobs []string
	// SkipHidden drops dotfiles and dot-directories.
	SkipHidden bool
	// MinFileSize omits smaller files from the tree; their bytes still
	// count toward the parent so totals stay honest.
	MinFileSize int64
	// FollowSymlinks descends into symlinked directories. Off by default:
	// link cycles and double counting are worse than a missing branch.
	FollowSymlinks bool
	// SkipNetworkFS refuses to descend into remote mounts.
	SkipNetworkFS bool

	globOnce sync.Once
	globs    []glob.Glob
}

// DefaultProfile returns the exclusion set for the current OS.
func DefaultProfile() *Profile {
	p := &Profile{
		SkipNames:     []string{".DS_Store", ".localized"},
		SkipNetworkFS: true,
	}
	switch runtime.GOOS {
	case "linux":
		p.ExcludedPaths = []string{
			"/proc", "/sys", "/dev", "/run",
			"/var/lib/docker", "/var/log/lastlog", "/snap",
		}
	case "darwin":
		p.ExcludedPaths = []string{
			"/System",
			"/System/Volumes/Data/.Spotlight-V100",
			"/System/Volumes/Data/.fseventsd",
			"/private/var/vm",
			"/Volumes/MobileBackups",
			"/Library/Application Support/MobileSync/Backup",
		}
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		p.ExcludedPaths = []string{
			`C:\$Recycle.Bin`,
			`C:\System Volume Information`,
			filepath.Join(windir, "WinSxS"),
			filepath.Join(windir, "Temp"),
		}
	}
	return p
}

// Excluded reports whether an absolute path must be skipped entirely.
func (p *Profile) Excluded(abs string) bool {
	name := filepath.Base(abs)
	for _, skip := range p.SkipNames {
		if name == skip {
			return true
		}
	}
	for _, ex := range p.ExcludedPaths {
		if pathEqualFold(abs, ex) || pathHasPrefix(abs, ex) {
			return true
		}
	}
	p.globOnce.Do(p.compileGlobs)
	for _, g := range p.globs {
		if g.Match(abs) || g.Match(name) {
			return true
		}
	}
	return false
}

// Hidden reports the cross-platform dotfile heuristic.
func (p *Profile) Hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// CompileGlobs validates the exclude patterns eagerly so a config loader
// can reject bad input instead of having the scanner silently drop it.
func (p *Profile) CompileGlobs() error {
	var firstErr error
	p.globOnce.Do(func() {})
	p.globs = p.globs[:0]
	for _, pat := range p.ExcludeGlobs {
		g, err := glob.Compile(pat, filepath.Separator)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.globs = append(p.globs, g)
	}
	return firstErr
}

// compileGlobs is the lazy path for profiles built without a config pass.
// Invalid patterns are dropped; CompileGlobs is where they get reported.
func (p *Profile) compileGlobs() {
	for _, pat := range p.ExcludeGlobs {
		if g, err := glob.Compile(pat, filepath.Separator); err == nil {
			p.globs = append(p.globs, g)
		}
	}
}

func pathEqualFold(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func pathHasPrefix(p, prefix string) bool {
	pref := filepath.Clean(prefix) + string(os.PathSeparator)
	if runtime.GOOS == "windows" {
		return strings.HasPrefix(strings.ToLower(p), strings.ToLower(pref))
	}
	return strings.HasPrefix(p, pref)
}
