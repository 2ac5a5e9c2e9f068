//go:build !linux && !darwin

package usb

func lookup(devicePath string) (Identifier, bool) {
	return Identifier{}, false
}
