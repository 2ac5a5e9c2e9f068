package modmanager

import (
	"plugin"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	modlib "github.com/dustwatch/dustwatch/module"
	modmanageroptions "github.com/dustwatch/dustwatch/module/modmanager/options"
)

// fileMarker must appear in the name of every module library.
const fileMarker = "module"

// LibraryExtensions returns the library file extensions of the running platform.
func LibraryExtensions() []string {
	if runtime.GOOS == "darwin" {
		return []string{".so", ".dylib"}
	}
	return []string{".so"}
}

// IsModuleFile reports whether a file name looks like a module library on this platform.
func IsModuleFile(name string) bool {
	return isModuleFile(name, LibraryExtensions())
}

func isModuleFile(name string, extensions []string) bool {
	if !strings.Contains(name, fileMarker) {
		return false
	}
	for _, ext := range extensions {
		if strings.Contains(name, ext) {
			return true
		}
	}
	return false
}

// goPlugin wraps a Go plugin. The runtime cannot unload plugins so Close only drops the handle.
type goPlugin struct {
	p *plugin.Plugin
}

func openPlugin(path string) (modmanageroptions.Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &goPlugin{p: p}, nil
}

func (g *goPlugin) Lookup(symbol string) (interface{}, error) {
	if g.p == nil {
		return nil, errors.New("library is closed")
	}
	return g.p.Lookup(symbol)
}

func (g *goPlugin) Close() error {
	g.p = nil
	return nil
}

type symbols struct {
	factory modlib.Factory
	destroy modlib.Destructor
	name    modlib.InfoFunc
	version modlib.InfoFunc
}

// resolve looks up the module symbols of lib. Only the factory is required. Symbols may be
// exported as functions or as variables holding a function.
func resolve(lib modmanageroptions.Library) (symbols, error) {
	var syms symbols

	sym, err := lib.Lookup(modlib.NewModuleSymbol)
	if err != nil {
		return syms, errors.Wrapf(err, "missing %s", modlib.NewModuleSymbol)
	}
	switch f := sym.(type) {
	case func() modlib.Module:
		syms.factory = f
	case *func() modlib.Module:
		syms.factory = *f
	default:
		return syms, errors.Errorf("%s has type %T, expected func() module.Module", modlib.NewModuleSymbol, sym)
	}
	if syms.factory == nil {
		return syms, errors.Errorf("%s is nil", modlib.NewModuleSymbol)
	}

	if sym, err := lib.Lookup(modlib.DestroyModuleSymbol); err == nil {
		switch f := sym.(type) {
		case func(modlib.Module):
			syms.destroy = f
		case *func(modlib.Module):
			syms.destroy = *f
		}
	}
	syms.name = lookupInfo(lib, modlib.NameSymbol)
	syms.version = lookupInfo(lib, modlib.VersionSymbol)
	return syms, nil
}

func lookupInfo(lib modmanageroptions.Library, symbol string) modlib.InfoFunc {
	sym, err := lib.Lookup(symbol)
	if err != nil {
		return nil
	}
	switch f := sym.(type) {
	case func() string:
		return f
	case *func() string:
		return *f
	default:
		return nil
	}
}
