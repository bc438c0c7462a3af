// Package config loads the spaceview configuration file.
//
// The file lives at $XDG_CONFIG_HOME/spaceview/config.yaml. Loading starts
// from the built-in defaults and overlays whatever the file sets, so a
// config that names one key changes one thing. A missing file is not an
// error; a malformed one is.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"spaceview/internal/anim"
	"spaceview/internal/layout"
	"spaceview/internal/scale"
	"spaceview/internal/scan"
	"spaceview/internal/watch"
)

// Config is the whole file. Zero values mean "use the default"; Load
// never returns a Config with unresolved zeros in required fields.
type Config struct {
	Scan      Scan      `yaml:"scan"`
	Layout    Layout    `yaml:"layout"`
	Animation Animation `yaml:"animation"`
	Watch     Watch     `yaml:"watch"`
	Server    Server    `yaml:"server"`
	UI        UI        `yaml:"ui"`
	Log       LogConfig `yaml:"log"`
	Protected []string  `yaml:"protected_paths"`
}

// Scan controls the local scanner.
type Scan struct {
	Depth          int      `yaml:"depth"`
	MaxChildren    int      `yaml:"max_children"`
	Workers        int      `yaml:"workers"`
	CacheTTLSec    int      `yaml:"cache_ttl_sec"`
	SkipHidden     bool     `yaml:"skip_hidden"`
	FollowSymlinks bool     `yaml:"follow_symlinks"`
	SkipNetworkFS  bool     `yaml:"skip_network_fs"`
	MinFileSize    int64    `yaml:"min_file_size"`
	Exclude        []string `yaml:"exclude"`
}

// TTL returns the cache lifetime as a duration.
func (s Scan) TTL() time.Duration { return time.Duration(s.CacheTTLSec) * time.Second }

// Layout bundles the engine tunables plus the size-to-weight curve each
// mode uses. Area modes want stronger compression than the city's height.
type Layout struct {
	Engines layout.Config `yaml:",inline"`
	Scalers Scalers       `yaml:"scalers"`
}

// Scalers names the curve per mode, parsed by scale.Parse.
type Scalers struct {
	Sunburst   string `yaml:"sunburst"`
	Treemap    string `yaml:"treemap"`
	CirclePack string `yaml:"circlepack"`
	City       string `yaml:"city"`
	// Floor is the minimum byte count fed to any curve.
	Floor int64 `yaml:"floor"`
}

// ForMode resolves the configured curve for a layout mode.
func (s Scalers) ForMode(m layout.Mode) (scale.Func, error) {
	name := map[layout.Mode]string{
		layout.ModeSunburst:   s.Sunburst,
		layout.ModeTreemap:    s.Treemap,
		layout.ModeCirclePack: s.CirclePack,
		layout.ModeCity:       s.City,
	}[m]
	return scale.Parse(name, s.Floor)
}

// Animation is transition pacing in milliseconds.
type Animation struct {
	NodeMS       int `yaml:"node_ms"`
	PerDepthMS   int `yaml:"per_depth_ms"`
	PerSiblingMS int `yaml:"per_sibling_ms"`
	MaxTotalMS   int `yaml:"max_total_ms"`
}

// Pacing converts to the animator's config.
func (a Animation) Pacing() anim.Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return anim.Config{
		NodeDuration: ms(a.NodeMS),
		PerDepth:     ms(a.PerDepthMS),
		PerSibling:   ms(a.PerSiblingMS),
		MaxTotal:     ms(a.MaxTotalMS),
	}
}

// Watch tunes the live-update watcher.
type Watch struct {
	Enabled     bool     `yaml:"enabled"`
	DebounceSec int      `yaml:"debounce_sec"`
	MaxDepth    int      `yaml:"max_depth"`
	Ignore      []string `yaml:"ignore"`
}

// Settings converts to the watcher's config.
func (w Watch) Settings() watch.Config {
	return watch.Config{
		Debounce: time.Duration(w.DebounceSec) * time.Second,
		MaxDepth: w.MaxDepth,
		Ignore:   w.Ignore,
	}
}

// Server configures `spaceview serve`.
type Server struct {
	Addr string `yaml:"addr"`
}

// UI configures the terminal shell.
type UI struct {
	// Mode is the layout shown on start.
	Mode string `yaml:"mode"`
	// StartPath overrides the home-directory default.
	StartPath string `yaml:"start_path"`
	// TrashDir overrides the XDG trash location.
	TrashDir string `yaml:"trash_dir"`
}

// LogConfig mirrors logging.Config so one file configures both.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	a := anim.DefaultConfig()
	return &Config{
		Scan: Scan{
			Depth:       scan.DefaultDepth,
			MaxChildren: scan.DefaultMaxChildren,
			CacheTTLSec: int(scan.DefaultTTL / time.Second),
			SkipHidden:  false,
		},
		Layout: Layout{
			Engines: layout.DefaultConfig(),
			Scalers: Scalers{
				Sunburst:   "cube-root",
				Treemap:    "cube-root",
				CirclePack: "sqrt",
				City:       "pow:0.35",
				Floor:      1,
			},
		},
		Animation: Animation{
			NodeMS:       int(a.NodeDuration / time.Millisecond),
			PerDepthMS:   int(a.PerDepth / time.Millisecond),
			PerSiblingMS: int(a.PerSibling / time.Millisecond),
			MaxTotalMS:   int(a.MaxTotal / time.Millisecond),
		},
		Watch: Watch{
			Enabled:     true,
			DebounceSec: 2,
			MaxDepth:    2,
		},
		Server: Server{Addr: ":5005"},
		UI:     UI{Mode: string(layout.ModeSunburst)},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "spaceview", "config.yaml")
}

// Load reads path, or the default location when path is empty. A missing
// file returns the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values that would silently misbehave later.
func (c *Config) Validate() error {
	if c.Scan.Depth < 0 || c.Scan.Depth > scan.MaxScanDepth {
		return fmt.Errorf("scan.depth must be between 0 and %d, got %d", scan.MaxScanDepth, c.Scan.Depth)
	}
	if c.Scan.MaxChildren < 0 {
		return fmt.Errorf("scan.max_children must not be negative, got %d", c.Scan.MaxChildren)
	}
	if c.Scan.MinFileSize < 0 {
		return fmt.Errorf("scan.min_file_size must not be negative, got %d", c.Scan.MinFileSize)
	}
	for _, m := range layout.Modes() {
		if _, err := c.Layout.Scalers.ForMode(m); err != nil {
			return fmt.Errorf("layout.scalers.%s: %w", m, err)
		}
	}
	if mode := layout.Mode(c.UI.Mode); c.UI.Mode != "" {
		if _, err := layout.ForMode(mode, c.Layout.Engines); err != nil {
			return fmt.Errorf("ui.mode: %w", err)
		}
	}
	if c.Animation.NodeMS < 0 || c.Animation.MaxTotalMS < 0 {
		return fmt.Errorf("animation durations must not be negative")
	}
	return nil
}

// Profile builds the scanner profile this config describes.
func (c *Config) Profile() *scan.Profile {
	p := scan.DefaultProfile()
	p.SkipHidden = c.Scan.SkipHidden
	p.FollowSymlinks = c.Scan.FollowSymlinks
	p.SkipNetworkFS = c.Scan.SkipNetworkFS
	p.MinFileSize = c.Scan.MinFileSize
	p.ExcludeGlobs = append(p.ExcludeGlobs, c.Scan.Exclude...)
	return p
}

// Options builds the scan options this config describes.
func (c *Config) Options() scan.Options {
	return scan.Options{Depth: c.Scan.Depth, MaxChildren: c.Scan.MaxChildren}
}
