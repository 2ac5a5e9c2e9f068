// Package usb provides utilities for identifying the USB adapters behind serial device nodes.
package usb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Description describes a specific USB device.
type Description struct {
	ID   Identifier
	Path string
}

// Identifier identifies a specific USB device by the vendor
// who produced it and the product that it is. These should
// be unique across products.
type Identifier struct {
	Vendor  int
	Product int
}

// VendorID returns the vendor id as the four digit lowercase hex string lsusb prints.
func (id Identifier) VendorID() string {
	return fmt.Sprintf("%04x", id.Vendor)
}

// ProductID returns the product id as the four digit lowercase hex string lsusb prints.
func (id Identifier) ProductID() string {
	return fmt.Sprintf("%04x", id.Product)
}

func (id Identifier) String() string {
	return id.VendorID() + ":" + id.ProductID()
}

// Lookup finds the USB identifier of the adapter backing a serial device node such as
// /dev/ttyUSB0. It is a variable in case you need to override it during tests.
var Lookup = func(devicePath string) (Identifier, bool) {
	return lookup(devicePath)
}

// parseProduct parses a kernel uevent PRODUCT value, "1a86/7523/264", whose fields are hex
// without leading zeroes.
func parseProduct(product string) (Identifier, error) {
	parts := strings.Split(product, "/")
	if len(parts) < 2 {
		return Identifier{}, errors.Errorf("malformed PRODUCT %q", product)
	}
	vendorID, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil {
		return Identifier{}, errors.Wrapf(err, "malformed vendor in PRODUCT %q", product)
	}
	productID, err := strconv.ParseInt(parts[1], 16, 64)
	if err != nil {
		return Identifier{}, errors.Wrapf(err, "malformed product in PRODUCT %q", product)
	}
	return Identifier{Vendor: int(vendorID), Product: int(productID)}, nil
}
