//go:build darwin

package usb

import (
	"os/exec"

	"howett.net/plist"
)

// SearchCmd is the actual system command to run; it is normally ioreg.
var SearchCmd = func(ioObjectClass string) []byte {
	cmd := exec.Command("ioreg", "-r", "-c", ioObjectClass, "-a", "-l")
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	return out
}

// usbDeviceClass is the IOKit class of USB devices on current macOS releases.
const usbDeviceClass = "IOUSBHostDevice"

func lookup(devicePath string) (Identifier, bool) {
	for _, desc := range Search(usbDeviceClass) {
		if desc.Path == devicePath {
			return desc.ID, true
		}
	}
	return Identifier{}, false
}

// Search uses macOS io device APIs to find all USB devices of the given class that expose a
// serial callout or dial-in node.
func Search(ioObjectClass string) []Description {
	out := SearchCmd(ioObjectClass)
	if len(out) == 0 {
		return nil
	}
	var data []map[string]interface{}
	if _, err := plist.Unmarshal(out, &data); err != nil {
		return nil
	}
	var results []Description
	for _, device := range data {
		idVendor, ok := device["idVendor"].(uint64)
		if !ok {
			continue
		}
		idProduct, ok := device["idProduct"].(uint64)
		if !ok {
			continue
		}
		id := Identifier{Vendor: int(idVendor), Product: int(idProduct)}
		for _, path := range serialNodes(device) {
			results = append(results, Description{ID: id, Path: path})
		}
	}
	return results
}

// serialNodes walks the registry children of a USB device collecting its /dev/cu.* and
// /dev/tty.* nodes.
func serialNodes(entry map[string]interface{}) []string {
	var nodes []string
	for _, key := range []string{"IOCalloutDevice", "IODialinDevice"} {
		if node, ok := entry[key].(string); ok && node != "" {
			nodes = append(nodes, node)
		}
	}
	children, ok := entry["IORegistryEntryChildren"].([]interface{})
	if !ok {
		return nodes
	}
	for _, child := range children {
		childM, ok := child.(map[string]interface{})
		if !ok {
			continue
		}
		nodes = append(nodes, serialNodes(childM)...)
	}
	return nodes
}
