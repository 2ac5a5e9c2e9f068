package inject

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dustwatch/dustwatch/device"
	"github.com/dustwatch/dustwatch/module"
)

// Module is an injected module. Lifecycle calls succeed when not injected; everything else
// falls through to the embedded Module.
type Module struct {
	module.Module
	name                 string
	InitializeFunc       func() error
	CleanupFunc          func() error
	DetectDevicesFunc    func() []device.Descriptor
	CanHandleDeviceFunc  func(d device.Descriptor) bool
	DeviceMatchScoreFunc func(d device.Descriptor) float64
	CreateSensorFunc     func() (module.Sensor, error)
	CreateUIFunc         func() (module.UI, error)
	DevicePatternsFunc   func() []string
}

// NewModule returns a new injected module.
func NewModule(name string) *Module {
	return &Module{name: name}
}

// Name returns the name given to NewModule.
func (m *Module) Name() string {
	return m.name
}

// Version is always "test".
func (m *Module) Version() string {
	return "test"
}

// Description returns a description derived from the name.
func (m *Module) Description() string {
	return "injected " + m.name
}

// Initialize calls the injected Initialize or succeeds.
func (m *Module) Initialize() error {
	if m.InitializeFunc == nil {
		return nil
	}
	return m.InitializeFunc()
}

// Cleanup calls the injected Cleanup or succeeds.
func (m *Module) Cleanup() error {
	if m.CleanupFunc == nil {
		return nil
	}
	return m.CleanupFunc()
}

// DetectDevices calls the injected DetectDevices or the real version.
func (m *Module) DetectDevices() []device.Descriptor {
	if m.DetectDevicesFunc == nil {
		return m.Module.DetectDevices()
	}
	return m.DetectDevicesFunc()
}

// CanHandleDevice calls the injected CanHandleDevice or the real version.
func (m *Module) CanHandleDevice(d device.Descriptor) bool {
	if m.CanHandleDeviceFunc == nil {
		return m.Module.CanHandleDevice(d)
	}
	return m.CanHandleDeviceFunc(d)
}

// DeviceMatchScore calls the injected DeviceMatchScore or the real version.
func (m *Module) DeviceMatchScore(d device.Descriptor) float64 {
	if m.DeviceMatchScoreFunc == nil {
		return m.Module.DeviceMatchScore(d)
	}
	return m.DeviceMatchScoreFunc(d)
}

// CreateSensor calls the injected CreateSensor or the real version.
func (m *Module) CreateSensor() (module.Sensor, error) {
	if m.CreateSensorFunc == nil {
		return m.Module.CreateSensor()
	}
	return m.CreateSensorFunc()
}

// CreateUI calls the injected CreateUI or returns no UI.
func (m *Module) CreateUI() (module.UI, error) {
	if m.CreateUIFunc == nil {
		return nil, nil
	}
	return m.CreateUIFunc()
}

// DevicePatterns calls the injected DevicePatterns or the real version.
func (m *Module) DevicePatterns() []string {
	if m.DevicePatternsFunc == nil {
		return m.Module.DevicePatterns()
	}
	return m.DevicePatternsFunc()
}

// Sensor is an injected sensor.
type Sensor struct {
	module.Sensor
	InitializeFunc  func(ctx context.Context, devicePath string) error
	IsConnectedFunc func() bool
	ReadDataFunc    func(ctx context.Context) (module.Reading, error)
	CleanupFunc     func() error
}

// Initialize calls the injected Initialize or the real version.
func (s *Sensor) Initialize(ctx context.Context, devicePath string) error {
	if s.InitializeFunc == nil {
		return s.Sensor.Initialize(ctx, devicePath)
	}
	return s.InitializeFunc(ctx, devicePath)
}

// IsConnected calls the injected IsConnected or the real version.
func (s *Sensor) IsConnected() bool {
	if s.IsConnectedFunc == nil {
		return s.Sensor.IsConnected()
	}
	return s.IsConnectedFunc()
}

// ReadData calls the injected ReadData or the real version.
func (s *Sensor) ReadData(ctx context.Context) (module.Reading, error) {
	if s.ReadDataFunc == nil {
		return s.Sensor.ReadData(ctx)
	}
	return s.ReadDataFunc(ctx)
}

// Cleanup calls the injected Cleanup or the real version.
func (s *Sensor) Cleanup() error {
	if s.CleanupFunc == nil {
		return s.Sensor.Cleanup()
	}
	return s.CleanupFunc()
}

// Reading is a fixed reading.
type Reading struct {
	At     time.Time
	Values map[string]float64
	Level  module.Severity
}

// DisplayString lists the values.
func (r *Reading) DisplayString() string {
	return r.At.Format("15:04:05")
}

// Quality returns the severity name.
func (r *Reading) Quality() string {
	return r.Level.String()
}

// Severity returns Level.
func (r *Reading) Severity() module.Severity {
	return r.Level
}

// Time returns At.
func (r *Reading) Time() time.Time {
	return r.At
}

// Measurements returns Values.
func (r *Reading) Measurements() map[string]float64 {
	return r.Values
}

// Library is an injected module library backed by a symbol table.
type Library struct {
	Symbols   map[string]interface{}
	CloseFunc func() error
	Closed    bool
}

// Lookup returns the named symbol.
func (l *Library) Lookup(symbol string) (interface{}, error) {
	sym, ok := l.Symbols[symbol]
	if !ok {
		return nil, errors.Errorf("symbol %s not found", symbol)
	}
	return sym, nil
}

// Close calls the injected Close and marks the library closed.
func (l *Library) Close() error {
	l.Closed = true
	if l.CloseFunc == nil {
		return nil
	}
	return l.CloseFunc()
}
