package sds011

import (
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"

	"github.com/dustwatch/dustwatch/device"
	"github.com/dustwatch/dustwatch/logging"
	"github.com/dustwatch/dustwatch/module"
	"github.com/dustwatch/dustwatch/registry"
	"github.com/dustwatch/dustwatch/serial"
)

const (
	// Name of the module.
	Name = "SDS011"
	// Version of the module.
	Version = "1.0.0"

	// VendorID and ProductID of the CH340 bridge the SDS011 ships with.
	VendorID  = "1a86"
	ProductID = "7523"

	description       = "SDS011 PM2.5/PM10 Particulate Matter Sensor Module"
	deviceDescription = "SDS011 PM2.5/PM10 Sensor"
	genericDescription = "Serial port"
)

// Match score weights. Only the resulting order between modules matters.
const (
	descriptionWeight = 1.0
	vendorWeight      = 0.8
	productWeight     = 0.8
	pathWeight        = 0.5
)

// pathFragments are port name fragments of the CH340 driver on linux and macOS.
var pathFragments = []string{"ttyUSB", "cu.usbserial"}

var patterns = []string{"ttyUSB*", "cu.usbserial*", "tty.usbserial*", "cu.wchusbserial*", "tty.wchusbserial*"}

func init() {
	registry.RegisterModule(Name, registry.Module{
		Version: Version,
		Factory: NewModule,
		Destroy: DestroyModule,
	})
}

// Module is the SDS011 sensor family.
type Module struct {
	logger     logging.Logger
	clk        clock.Clock
	discoverer *device.Discoverer
	inspector  *device.Inspector
}

// NewModule returns the SDS011 module.
func NewModule() module.Module {
	return newModule(logging.Global().Sublogger("sds011"), clock.New(), device.NewDiscoverer(device.CurrentProfile()), device.NewInspector())
}

// DestroyModule releases a module returned by NewModule.
func DestroyModule(m module.Module) {
	if mod, ok := m.(*Module); ok {
		mod.discoverer, mod.inspector = nil, nil
	}
}

func newModule(logger logging.Logger, clk clock.Clock, discoverer *device.Discoverer, inspector *device.Inspector) *Module {
	return &Module{logger: logger, clk: clk, discoverer: discoverer, inspector: inspector}
}

// Initialize has nothing to prepare.
func (m *Module) Initialize() error {
	return nil
}

// Cleanup has nothing to release; sensors own their ports.
func (m *Module) Cleanup() error {
	return nil
}

// DetectDevices describes every existing serial port the discovery patterns or a bridge chip
// name point at, accessible or not. Ports that do not look like a CH340 bridge are kept with a
// generic description so they rank below real candidates.
func (m *Module) DetectDevices() []device.Descriptor {
	familyPatterns := lo.Union(patterns, m.discoverer.Patterns)
	var found []device.Descriptor
	for _, path := range m.discoverer.Discover() {
		if !device.LooksLikeFamily(path, familyPatterns) && !hasFragment(path) {
			continue
		}
		desc, perms := device.Describe(path, "", m.inspector)
		if !perms.Exists {
			continue
		}
		switch {
		case desc.VendorID == VendorID:
			desc.Description = deviceDescription
		case desc.VendorID != "":
			desc.Description = "USB serial device " + desc.VendorID + ":" + desc.ProductID
		case hasFragment(path) || device.MatchAny(patterns, path):
			desc.Description = deviceDescription
		default:
			desc.Description = genericDescription
		}
		found = append(found, desc)
	}
	m.logger.Debugw("detected devices", "count", len(found))
	return found
}

// CanHandleDevice accepts devices that are described as an SDS011, use the CH340 vendor id or
// sit on a port name the CH340 driver uses.
func (m *Module) CanHandleDevice(d device.Descriptor) bool {
	return strings.Contains(d.Description, Name) ||
		d.VendorID == VendorID ||
		hasFragment(d.Path) ||
		device.LooksLikeFamily(d.Path, patterns)
}

// DeviceMatchScore sums the weights of every matching hint.
func (m *Module) DeviceMatchScore(d device.Descriptor) float64 {
	var score float64
	if strings.Contains(d.Description, Name) {
		score += descriptionWeight
	}
	if d.VendorID == VendorID {
		score += vendorWeight
	}
	if d.ProductID == ProductID {
		score += productWeight
	}
	for _, fragment := range pathFragments {
		if strings.Contains(d.Path, fragment) {
			score += pathWeight
		}
	}
	return score
}

// CreateSensor returns an unconnected sensor using the SDS011 line settings.
func (m *Module) CreateSensor() (module.Sensor, error) {
	return newSensor(m.logger, m.clk, serial.DefaultOptions()), nil
}

// CreateUI returns the console layout of SDS011 readings.
func (m *Module) CreateUI() (module.UI, error) {
	return ui{}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return Name
}

// Version returns the module version.
func (m *Module) Version() string {
	return Version
}

// Description describes the module.
func (m *Module) Description() string {
	return description
}

// DevicePatterns returns the port name globs SDS011 sensors show up as.
func (m *Module) DevicePatterns() []string {
	return append([]string(nil), patterns...)
}

func hasFragment(path string) bool {
	for _, fragment := range pathFragments {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}
