//go:build linux

package usb

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// SysPath is where the kernel exposes tty class devices.
var SysPath = "/sys/class/tty"

// ueventSearchDepth is how many ancestors of the tty device are searched. A usb-serial
// converter's PRODUCT sits on the interface one level up, a cdc-acm one directly on it.
const ueventSearchDepth = 3

func lookup(devicePath string) (Identifier, bool) {
	devDir, err := filepath.EvalSymlinks(filepath.Join(SysPath, filepath.Base(devicePath), "device"))
	if err != nil {
		return Identifier{}, false
	}
	dir := devDir
	for i := 0; i < ueventSearchDepth; i++ {
		if id, ok := productFromUevent(filepath.Join(dir, "uevent")); ok {
			return id, true
		}
		dir = filepath.Dir(dir)
	}
	return Identifier{}, false
}

func productFromUevent(path string) (Identifier, bool) {
	ueventFile, err := os.Open(path)
	if err != nil {
		return Identifier{}, false
	}
	//nolint:errcheck
	defer ueventFile.Close()

	const productPrefix = "PRODUCT="
	scanner := bufio.NewScanner(ueventFile)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, productPrefix) {
			continue
		}
		id, err := parseProduct(strings.TrimPrefix(line, productPrefix))
		if err != nil {
			continue
		}
		return id, true
	}
	return Identifier{}, false
}
