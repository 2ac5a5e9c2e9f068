// Package main builds the SDS011 module as a loadable library:
//
//	go build -buildmode=plugin -o sds011_module.so ./cmd/sds011-module
package main

import (
	"github.com/dustwatch/dustwatch/drivers/sds011"
	"github.com/dustwatch/dustwatch/module"
)

// NewModule constructs the module.
func NewModule() module.Module {
	return sds011.NewModule()
}

// DestroyModule releases a module constructed by NewModule.
func DestroyModule(m module.Module) {
	sds011.DestroyModule(m)
}

// ModuleName reports the module name.
func ModuleName() string {
	return sds011.Name
}

// ModuleVersion reports the module version.
func ModuleVersion() string {
	return sds011.Version
}

func main() {}
