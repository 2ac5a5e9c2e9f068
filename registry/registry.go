// Package registry operates the global registry of modules linked into the binary.
package registry

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/dustwatch/dustwatch/module"
)

// Module is a statically linked module.
type Module struct {
	Version string
	Factory module.Factory
	Destroy module.Destructor
}

var (
	mu             sync.RWMutex
	moduleRegistry = map[string]Module{}
)

// RegisterModule registers a module under name. Registering the same name twice panics.
func RegisterModule(name string, registration Module) {
	mu.Lock()
	defer mu.Unlock()
	if _, old := moduleRegistry[name]; old {
		panic(errors.Errorf("trying to register two modules with same name %s", name))
	}
	if registration.Factory == nil {
		panic(errors.Errorf("cannot register a nil factory for module %s", name))
	}
	moduleRegistry[name] = registration
}

// DeregisterModule removes a previously registered module.
func DeregisterModule(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(moduleRegistry, name)
}

// LookupModule looks up a module by the given name. ok is false when nothing is registered.
func LookupModule(name string) (Module, bool) {
	mu.RLock()
	defer mu.RUnlock()
	registration, ok := moduleRegistry[name]
	return registration, ok
}

// RegisteredModules returns the names of all registered modules, sorted.
func RegisteredModules() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(moduleRegistry))
	for name := range moduleRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
