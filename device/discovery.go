package device

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"

	"github.com/dustwatch/dustwatch/usb"
)

// Discoverer enumerates candidate serial device paths.
type Discoverer struct {
	// Dir is scanned for entries matching Patterns.
	Dir          string
	Patterns     []string
	KnownDevices []string
	// Fallback is returned when nothing was found.
	Fallback []string
	// IsCharDevice defaults to a stat based check.
	IsCharDevice func(path string) bool
}

// NewDiscoverer returns a discoverer for profile.
func NewDiscoverer(profile Profile) *Discoverer {
	return &Discoverer{
		Dir:          profile.Dir,
		Patterns:     profile.Patterns,
		KnownDevices: profile.KnownDevices,
		Fallback:     profile.CommonPorts,
	}
}

// IsCharDevice reports whether path exists and is a character device.
func IsCharDevice(path string) bool {
	st, err := Stat(path)
	return err == nil && st.IsCharDevice()
}

// Discover scans the device directory and returns every character device matching a pattern,
// plus the known devices that exist, deduplicated and sorted. When that yields nothing the
// fallback list is returned unchecked so the caller still has something to try.
func (d *Discoverer) Discover() []string {
	isChar := d.IsCharDevice
	if isChar == nil {
		isChar = IsCharDevice
	}

	var found []string
	if entries, err := os.ReadDir(d.Dir); err == nil {
		for _, entry := range entries {
			path := filepath.Join(d.Dir, entry.Name())
			if MatchAny(d.Patterns, path) && isChar(path) {
				found = append(found, path)
			}
		}
	}
	for _, path := range d.KnownDevices {
		if isChar(path) {
			found = append(found, path)
		}
	}

	if len(found) == 0 {
		found = append(found, d.Fallback...)
	}
	found = lo.Uniq(found)
	sort.Strings(found)
	return found
}

// Describe builds the descriptor of path using USB identity lookups and the inspector's view
// of its permissions.
func Describe(path, description string, inspector *Inspector) (Descriptor, Permissions) {
	perms := inspector.Inspect(path)
	desc := Descriptor{
		Path:        path,
		Description: description,
		Accessible:  perms.Readable && perms.Writable,
	}
	if id, ok := usb.Lookup(path); ok {
		desc.VendorID = id.VendorID()
		desc.ProductID = id.ProductID()
	}
	return desc, perms
}
