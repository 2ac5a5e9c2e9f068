package device

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Profile lists where serial sensors show up on one operating system. Patterns are shell globs
// matched against the base name of entries in the device directory.
type Profile struct {
	Dir          string
	Patterns     []string
	KnownDevices []string
	CommonPorts  []string
}

// BridgeChipFragments are name fragments of USB-serial bridge chips as they appear in device
// node names.
var BridgeChipFragments = []string{
	"usbserial",
	"usbmodem",
	"SLAB_USBtoUART",
	"wchusbserial",
	"CH34",
	"CP210",
	"FT",
	"PL2303",
}

// CurrentProfile returns the profile of the running operating system.
func CurrentProfile() Profile {
	return ProfileFor(runtime.GOOS)
}

// ProfileFor returns the device profile for goos. Unknown systems get the linux profile.
func ProfileFor(goos string) Profile {
	if goos == "darwin" {
		return darwinProfile()
	}
	return linuxProfile()
}

func linuxProfile() Profile {
	p := Profile{
		Dir:      "/dev",
		Patterns: []string{"ttyUSB*", "ttyACM*", "ttyAMA*", "ttyS*"},
	}
	for i := 0; i < 8; i++ {
		p.KnownDevices = append(p.KnownDevices, fmt.Sprintf("/dev/ttyUSB%d", i), fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 4; i++ {
		p.CommonPorts = append(p.CommonPorts, fmt.Sprintf("/dev/ttyUSB%d", i), fmt.Sprintf("/dev/ttyACM%d", i))
	}
	p.CommonPorts = append(p.CommonPorts, "/dev/ttyS0", "/dev/ttyS1")
	return p
}

func darwinProfile() Profile {
	p := Profile{Dir: "/dev"}
	for _, chip := range []string{"usbserial", "usbmodem", "SLAB_USBtoUART", "wchusbserial", "CH34", "CP210"} {
		p.Patterns = append(p.Patterns, "cu."+chip+"*", "tty."+chip+"*")
	}
	p.KnownDevices = []string{
		"/dev/cu.usbserial-1140",
		"/dev/tty.usbserial-1140",
		"/dev/cu.usbserial-0001",
		"/dev/tty.usbserial-0001",
		"/dev/cu.SLAB_USBtoUART",
		"/dev/tty.SLAB_USBtoUART",
		"/dev/cu.wchusbserial1410",
		"/dev/tty.wchusbserial1410",
	}
	for i := 0; i < 4; i++ {
		p.CommonPorts = append(p.CommonPorts,
			fmt.Sprintf("/dev/cu.usbserial-%d", i),
			fmt.Sprintf("/dev/cu.usbmodem%d", i))
	}
	p.CommonPorts = append(p.CommonPorts, "/dev/cu.SLAB_USBtoUART", "/dev/cu.wchusbserial1410")
	return p
}

// MatchPattern reports whether path matches the glob. A glob containing a separator is matched
// against the whole path, anything else against the base name only.
func MatchPattern(pattern, path string) bool {
	target := filepath.Base(path)
	if strings.ContainsRune(pattern, filepath.Separator) {
		target = path
	}
	ok, err := filepath.Match(pattern, target)
	return err == nil && ok
}

// MatchAny reports whether path matches at least one of the patterns.
func MatchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if MatchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// LooksLikeFamily is the generic heuristic for whether path could belong to a sensor family
// whose nodes follow patterns: the path matches one of them or its name carries a bridge chip
// fragment.
func LooksLikeFamily(path string, patterns []string) bool {
	return MatchAny(patterns, path) || HasBridgeChipFragment(path)
}

// HasBridgeChipFragment reports whether the base name of path contains a bridge chip fragment.
func HasBridgeChipFragment(path string) bool {
	base := filepath.Base(path)
	for _, fragment := range BridgeChipFragments {
		if strings.Contains(base, fragment) {
			return true
		}
	}
	return false
}

// SerialPatterns returns the device name globs of the running operating system.
func SerialPatterns() []string {
	return CurrentProfile().Patterns
}

// CommonPorts returns the conventional port names tried when discovery finds nothing.
func CommonPorts() []string {
	return CurrentProfile().CommonPorts
}
