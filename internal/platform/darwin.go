//go:build darwin

package platform

import (
	"os"
	"os/exec"
	"strings"
	"syscall"
)

type Darwin struct{ Default }

func (Darwin) AllocatedSize(fi os.FileInfo) int64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return int64(st.Blocks) * 512
	}
	return fi.Size()
}

func (Darwin) InodeKeyOf(fi os.FileInfo) (InodeKey, bool) {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return InodeKey{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
	}
	return InodeKey{}, false
}

func (Darwin) HardLinks(fi os.FileInfo) uint64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Nlink)
	}
	return 1
}

func (Darwin) OpenInFileBrowser(p string) error {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return exec.Command("open", "-R", p).Run() // reveal in Finder
	}
	return exec.Command("open", p).Run()
}

func (Darwin) IsNetworkFS(p string) bool {
	var st syscall.Statfs_t
	if err := syscall.Statfs(p, &st); err != nil {
		return false
	}
	name := fsTypeName(&st)
	switch name {
	case "nfs", "smbfs", "afpfs", "webdav", "autofs":
		return true
	}
	return strings.HasPrefix(p, "/Volumes/") && name == "osxfuse"
}

func fsTypeName(st *syscall.Statfs_t) string {
	b := make([]byte, 0, len(st.Fstypename))
	for _, c := range st.Fstypename {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}

func init() { Impl = Darwin{} }
