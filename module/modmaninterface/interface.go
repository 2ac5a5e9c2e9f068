// Package modmaninterface abstracts the manager interface so consumers do not depend on how
// modules are loaded.
package modmaninterface

import (
	"github.com/dustwatch/dustwatch/device"
	"github.com/dustwatch/dustwatch/module"
	"github.com/dustwatch/dustwatch/module/modmanager"
)

// ModuleManager abstracts the module manager interface.
type ModuleManager interface {
	LoadAll(dir string) error
	Load(path string) error
	Register(name, version string, factory module.Factory, destroy module.Destructor) error

	DetectAllDevices() []device.Descriptor
	FindBestModuleForDevice(d device.Descriptor) (module.Module, bool)
	Score(d device.Descriptor) float64

	Modules() []modmanager.Info
	Names() []string
	Lookup(name string) (module.Module, bool)

	Close() error
}

var _ ModuleManager = (*modmanager.Manager)(nil)
