package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceview/internal/layout"
)

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.Error(t, err, "an explicit path must exist")
	assert.Nil(t, cfg)

	// The implicit default path may or may not exist on the test machine;
	// defaults are asserted through Default directly.
	def := Default()
	assert.Equal(t, 4, def.Scan.Depth)
	assert.Equal(t, ":5005", def.Server.Addr)
	assert.Equal(t, string(layout.ModeSunburst), def.UI.Mode)
}

func TestLoadOverlaysOnDefaults(t *testing.T) {
	p := write(t, `
scan:
  depth: 6
  skip_hidden: true
layout:
  scalers:
    treemap: sqrt
server:
  addr: ":9900"
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Scan.Depth)
	assert.True(t, cfg.Scan.SkipHidden)
	assert.Equal(t, ":9900", cfg.Server.Addr)
	assert.Equal(t, "sqrt", cfg.Layout.Scalers.Treemap)
	// Untouched keys keep their defaults.
	assert.Equal(t, "cube-root", cfg.Layout.Scalers.Sunburst)
	assert.Equal(t, 500, cfg.Scan.MaxChildren)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	p := write(t, "scan: [not a map")
	_, err := Load(p)
	assert.Error(t, err)
}

func TestValidateCatchesBadValues(t *testing.T) {
	cases := map[string]string{
		"depth too deep":  "scan:\n  depth: 99\n",
		"negative minsz":  "scan:\n  min_file_size: -1\n",
		"unknown curve":   "layout:\n  scalers:\n    city: banana\n",
		"unknown ui mode": "ui:\n  mode: cubist\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, body))
			assert.Error(t, err)
		})
	}
}

func TestEngineTunablesInline(t *testing.T) {
	p := write(t, `
layout:
  sunburst:
    min_angle_deg: 0.5
  city:
    height_exp: 0.5
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Layout.Engines.Sunburst.MinAngleDeg)
	assert.Equal(t, 0.5, cfg.Layout.Engines.City.HeightExp)
	// Sibling keys within the same section survive the overlay.
	assert.Equal(t, 6, cfg.Layout.Engines.Sunburst.MaxDepth)
}

func TestAnimationPacing(t *testing.T) {
	cfg := Default()
	pacing := cfg.Animation.Pacing()
	assert.Equal(t, 260*time.Millisecond, pacing.NodeDuration)
	assert.Equal(t, 900*time.Millisecond, pacing.MaxTotal)
}

func TestScalersForMode(t *testing.T) {
	s := Default().Layout.Scalers
	for _, m := range layout.Modes() {
		fn, err := s.ForMode(m)
		require.NoError(t, err)
		assert.Greater(t, fn(0), 0.0, "floor keeps zero sizes visible")
		assert.LessOrEqual(t, fn(100), fn(1000), "curves stay monotonic")
	}
}

func TestProfileAndOptions(t *testing.T) {
	p := write(t, `
scan:
  depth: 3
  max_children: 50
  min_file_size: 1024
  exclude: ["**/node_modules"]
  follow_symlinks: true
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	prof := cfg.Profile()
	assert.Equal(t, int64(1024), prof.MinFileSize)
	assert.True(t, prof.FollowSymlinks)
	assert.Contains(t, prof.ExcludeGlobs, "**/node_modules")

	opt := cfg.Options()
	assert.Equal(t, 3, opt.Depth)
	assert.Equal(t, 50, opt.MaxChildren)
}
