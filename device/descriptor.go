// Package device discovers candidate serial device nodes, inspects their permissions for the
// current process, and describes them for module matching.
package device

import (
	"github.com/samber/lo"
)

// Descriptor identifies one candidate hardware path and summarizes whether the current
// process may use it. Descriptors are values produced fresh by every discovery pass.
type Descriptor struct {
	Path        string
	VendorID    string
	ProductID   string
	Description string
	Accessible  bool
}

// Key is the identity of a Descriptor. Two descriptors with the same key describe the same
// device even if their description or accessibility differ.
type Key struct {
	Path      string
	VendorID  string
	ProductID string
}

// Key returns the identity of the descriptor.
func (d Descriptor) Key() Key {
	return Key{Path: d.Path, VendorID: d.VendorID, ProductID: d.ProductID}
}

// Equal reports whether two descriptors describe the same device.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.Key() == other.Key()
}

// Dedupe drops every descriptor equal to an earlier one, keeping the first occurrence and the
// original order.
func Dedupe(descriptors []Descriptor) []Descriptor {
	return lo.UniqBy(descriptors, Descriptor.Key)
}
