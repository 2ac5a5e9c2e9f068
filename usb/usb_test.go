package usb

import (
	"testing"

	"go.viam.com/test"
)

func TestParseProduct(t *testing.T) {
	id, err := parseProduct("1a86/7523/264")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldResemble, Identifier{Vendor: 0x1a86, Product: 0x7523})
	test.That(t, id.VendorID(), test.ShouldEqual, "1a86")
	test.That(t, id.ProductID(), test.ShouldEqual, "7523")
	test.That(t, id.String(), test.ShouldEqual, "1a86:7523")

	id, err = parseProduct("403/6001/600")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id.VendorID(), test.ShouldEqual, "0403")

	_, err = parseProduct("1a86")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseProduct("zz/7523/0")
	test.That(t, err, test.ShouldNotBeNil)
}
