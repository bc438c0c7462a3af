//go:build linux

package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

type Linux struct{ Default }

func (Linux) AllocatedSize(fi os.FileInfo) int64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		// st_blocks is 512-byte units regardless of the fs block size
		return int64(st.Blocks) * 512
	}
	return fi.Size()
}

func (Linux) InodeKeyOf(fi os.FileInfo) (InodeKey, bool) {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return InodeKey{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
	}
	return InodeKey{}, false
}

func (Linux) HardLinks(fi os.FileInfo) uint64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Nlink)
	}
	return 1
}

func (Linux) OpenInFileBrowser(p string) error {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		uri := "file://" + filepath.ToSlash(p)
		if err := exec.Command("dbus-send", "--session",
			"--dest=org.freedesktop.FileManager1", "--type=method_call", "--print-reply",
			"/org/freedesktop/FileManager1", "org.freedesktop.FileManager1.ShowItems",
			"array:string:"+uri, "string:").Run(); err == nil {
			return nil
		}
		return exec.Command("xdg-open", filepath.Dir(p)).Run()
	}
	return exec.Command("xdg-open", p).Run()
}

func (Linux) DefaultStartPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		if fi, err := os.Stat(h); err == nil && fi.IsDir() {
			return h
		}
	}
	return "/"
}

const (
	nfsSuperMagic    = 0x6969
	cifsSuperMagic   = 0xFF534D42
	smb2SuperMagic   = 0xFE534D42
	fuseSuperMagic   = 0x65735546
	autofsSuperMagic = 0x0187
)

func (Linux) IsNetworkFS(p string) bool {
	var st syscall.Statfs_t
	if err := syscall.Statfs(p, &st); err == nil {
		switch uint64(st.Type) {
		case nfsSuperMagic, cifsSuperMagic, smb2SuperMagic, fuseSuperMagic, autofsSuperMagic:
			return true
		}
	}
	// gvfs user mounts
	return strings.HasPrefix(p, "/run/user/") && strings.Contains(p, "/gvfs/")
}

func init() { Impl = Linux{} }
