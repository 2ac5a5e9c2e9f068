//go:build !unix

package device

import (
	"os"
)

// Stat stats path. Ownership is not available on this platform, so every node looks like it
// belongs to uid and gid 0.
func Stat(path string) (FileStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileStat{}, err
	}
	mode := uint32(info.Mode().Perm())
	if info.Mode()&os.ModeCharDevice != 0 {
		mode |= charDeviceBit
	}
	return FileStat{Mode: mode}, nil
}

const charDeviceBit = 0o020000

func isCharMode(mode uint32) bool {
	return mode&0o170000 == charDeviceBit
}
