//go:build windows

package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type Windows struct{ Default }

func (Windows) BaseName(p string) string {
	b := filepath.Base(p)
	if b == "." || b == string(os.PathSeparator) || b == "" {
		if vol := filepath.VolumeName(p); vol != "" {
			return vol + `\`
		}
	}
	return b
}

func (Windows) IsMountRoot(p string) bool {
	p, _ = filepath.Abs(p)
	vol := filepath.VolumeName(p)
	return strings.EqualFold(filepath.Clean(p), vol+`\`)
}

func (Windows) IsNetworkFS(p string) bool {
	// UNC paths and mapped shares start with a double separator.
	return strings.HasPrefix(p, `\\`)
}

func (Windows) OpenInFileBrowser(p string) error {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return exec.Command("explorer", "/select,", p).Run()
	}
	return exec.Command("explorer", p).Run()
}

func (Windows) DefaultStartPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		if fi, err := os.Stat(h); err == nil && fi.IsDir() {
			return h
		}
	}
	return `C:\`
}

func init() { Impl = Windows{} }
