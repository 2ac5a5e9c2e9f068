// Package module defines the contract between the host and sensor family modules. A module is
// either linked into the binary or built with -buildmode=plugin and loaded at runtime, in which
// case it exports the symbols named below.
package module

import (
	"context"
	"time"

	"github.com/dustwatch/dustwatch/device"
)

// Symbols resolved from a module library.
const (
	// NewModuleSymbol names the required factory, a func() Module.
	NewModuleSymbol = "NewModule"
	// DestroyModuleSymbol names the optional destructor, a func(Module).
	DestroyModuleSymbol = "DestroyModule"
	// NameSymbol names the optional func() string reporting the module name.
	NameSymbol = "ModuleName"
	// VersionSymbol names the optional func() string reporting the module version.
	VersionSymbol = "ModuleVersion"
)

// Unknown is reported for a name or version a module does not export.
const Unknown = "Unknown"

type (
	// Factory constructs a module instance. It is an alias so that plugin symbols of the
	// unnamed function type satisfy it.
	Factory = func() Module
	// Destructor releases a module instance created by the matching Factory.
	Destructor = func(Module)
	// InfoFunc reports a module name or version.
	InfoFunc = func() string
)

// Module is one sensor family. The host calls Initialize once after construction and Cleanup
// once before destruction.
type Module interface {
	Initialize() error
	Cleanup() error

	// DetectDevices returns descriptors of devices this family may be attached to.
	DetectDevices() []device.Descriptor
	CanHandleDevice(d device.Descriptor) bool
	// DeviceMatchScore ranks how well d fits this family. Only the ordering between modules
	// is meaningful; a score of zero or less means no match.
	DeviceMatchScore(d device.Descriptor) float64

	CreateSensor() (Sensor, error)
	// CreateUI may return a nil UI, in which case the host renders readings generically.
	CreateUI() (UI, error)

	Name() string
	Version() string
	Description() string
	DevicePatterns() []string
}

// Sensor is an open connection to one device.
type Sensor interface {
	Initialize(ctx context.Context, devicePath string) error
	IsConnected() bool
	// ReadData performs a single read-and-validate cycle. Retrying is up to the caller.
	ReadData(ctx context.Context) (Reading, error)
	Cleanup() error
}

// Reading is one decoded measurement set. Readings are immutable.
type Reading interface {
	DisplayString() string
	Quality() string
	Severity() Severity
	Time() time.Time
	// Measurements maps measurement names to values in the family's native units.
	Measurements() map[string]float64
}

// UI describes how a family wants its readings laid out by a console front-end.
type UI interface {
	Headers() []string
	Title(devicePath, status string) string
	Row(r Reading) []string
}

// Severity is a coarse classification of a reading, used to pick a display color.
type Severity int

// Severities from best to worst.
const (
	SeverityNominal Severity = iota
	SeverityModerate
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeverityNominal:
		return "nominal"
	case SeverityModerate:
		return "moderate"
	case SeveritySevere:
		return "severe"
	default:
		return "unknown"
	}
}
