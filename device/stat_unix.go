//go:build unix

package device

import (
	"golang.org/x/sys/unix"
)

// Stat stats path following symlinks.
func Stat(path string) (FileStat, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return FileStat{}, err
	}
	return FileStat{Mode: uint32(st.Mode), UID: st.Uid, GID: st.Gid}, nil
}

func isCharMode(mode uint32) bool {
	return mode&unix.S_IFMT == unix.S_IFCHR
}
