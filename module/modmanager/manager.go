// Package modmanager provides the module manager that loads sensor family modules and matches
// them to devices.
package modmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/dustwatch/dustwatch/device"
	"github.com/dustwatch/dustwatch/logging"
	modlib "github.com/dustwatch/dustwatch/module"
	modmanageroptions "github.com/dustwatch/dustwatch/module/modmanager/options"
)

// LoadError reports a module that could not be loaded. Nothing of a failed module stays
// registered.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load module %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Info describes a loaded module.
type Info struct {
	Name        string
	Version     string
	Path        string
	Description string
}

type module struct {
	name    string
	version string
	path    string
	mod     modlib.Module
	destroy modlib.Destructor
	lib     modmanageroptions.Library
}

// Manager is the root structure for the module system. It owns every loaded module and must
// outlive the sensors created from them.
type Manager struct {
	mu         sync.RWMutex
	logger     logging.Logger
	opener     modmanageroptions.Opener
	extensions []string
	modules    []*module
}

// NewManager returns a Manager.
func NewManager(logger logging.Logger, options modmanageroptions.Options) *Manager {
	opener := options.Opener
	if opener == nil {
		opener = openPlugin
	}
	extensions := options.Extensions
	if len(extensions) == 0 {
		extensions = LibraryExtensions()
	}
	return &Manager{
		logger:     logger.Sublogger("modmanager"),
		opener:     opener,
		extensions: extensions,
	}
}

// LoadAll loads every module library found directly inside dir, in name order. Failures of
// individual modules are logged; an error is returned only when no module could be loaded.
func (mgr *Manager) LoadAll(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "cannot read module directory %s", dir)
	}

	var loaded int
	var loadErrs error
	for _, entry := range entries {
		if !isModuleFile(entry.Name(), mgr.extensions) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		// Stat follows symlinks, which is how versioned libraries are usually installed.
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := mgr.Load(path); err != nil {
			mgr.logger.Warnw("skipping module", "path", path, "error", err)
			loadErrs = multierr.Append(loadErrs, err)
			continue
		}
		loaded++
	}

	if loaded == 0 {
		if loadErrs == nil {
			return errors.Errorf("no modules found in %s", dir)
		}
		return errors.Wrapf(loadErrs, "no modules loaded from %s", dir)
	}
	return nil
}

// Load opens the library at path, resolves its symbols, constructs and initializes the module.
func (mgr *Manager) Load(path string) error {
	lib, err := mgr.opener(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}

	syms, err := resolve(lib)
	if err != nil {
		return &LoadError{Path: path, Err: multierr.Combine(err, lib.Close())}
	}
	if err := mgr.add(path, syms, lib); err != nil {
		return &LoadError{Path: path, Err: err}
	}
	return nil
}

// Register adds a module that is linked into the binary. It goes through the same
// construction and initialization as a loaded library.
func (mgr *Manager) Register(name, version string, factory modlib.Factory, destroy modlib.Destructor) error {
	if factory == nil {
		return &LoadError{Path: name, Err: errors.New("nil factory")}
	}
	syms := symbols{
		factory: factory,
		destroy: destroy,
		name:    func() string { return name },
		version: func() string { return version },
	}
	if err := mgr.add("builtin:"+name, syms, nil); err != nil {
		return &LoadError{Path: name, Err: err}
	}
	return nil
}

func (mgr *Manager) add(path string, syms symbols, lib modmanageroptions.Library) error {
	closeLib := func() error {
		if lib == nil {
			return nil
		}
		return lib.Close()
	}

	name := infoOrUnknown(syms.name)
	if _, dup := mgr.Lookup(name); dup && name != modlib.Unknown {
		return multierr.Combine(errors.Errorf("module %q is already loaded", name), closeLib())
	}

	mod, err := construct(syms.factory)
	if err != nil {
		return multierr.Combine(err, closeLib())
	}
	if err := guard("initialize", mod.Initialize); err != nil {
		if syms.destroy != nil {
			err = multierr.Combine(err, guard("destroy", func() error { syms.destroy(mod); return nil }))
		}
		return multierr.Combine(err, closeLib())
	}

	version := infoOrUnknown(syms.version)
	if _, err := semver.NewVersion(version); err != nil && version != modlib.Unknown {
		mgr.logger.Warnw("module version is not a semantic version", "name", name, "version", version)
	}
	entry := &module{
		name:    name,
		version: version,
		path:    path,
		mod:     mod,
		destroy: syms.destroy,
		lib:     lib,
	}
	mgr.mu.Lock()
	mgr.modules = append(mgr.modules, entry)
	mgr.mu.Unlock()
	mgr.logger.Infow("loaded module", "name", entry.name, "version", entry.version, "path", path)
	return nil
}

// DetectAllDevices merges the devices detected by every module in load order. A device
// reported by several modules is kept once, as first reported.
func (mgr *Manager) DetectAllDevices() []device.Descriptor {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	var all []device.Descriptor
	for _, m := range mgr.modules {
		all = append(all, m.mod.DetectDevices()...)
	}
	return device.Dedupe(all)
}

// FindBestModuleForDevice returns the module with the strictly highest positive match score
// among those that can handle d. Ties keep the module loaded first.
func (mgr *Manager) FindBestModuleForDevice(d device.Descriptor) (modlib.Module, bool) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	var best modlib.Module
	var bestScore float64
	for _, m := range mgr.modules {
		if !m.mod.CanHandleDevice(d) {
			continue
		}
		if score := m.mod.DeviceMatchScore(d); score > bestScore {
			best, bestScore = m.mod, score
		}
	}
	return best, best != nil
}

// Score returns the score the best module gave d, or zero.
func (mgr *Manager) Score(d device.Descriptor) float64 {
	mod, ok := mgr.FindBestModuleForDevice(d)
	if !ok {
		return 0
	}
	return mod.DeviceMatchScore(d)
}

// Modules returns the loaded modules in load order.
func (mgr *Manager) Modules() []Info {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return lo.Map(mgr.modules, func(m *module, _ int) Info {
		return Info{Name: m.name, Version: m.version, Path: m.path, Description: m.mod.Description()}
	})
}

// Names returns the names of the loaded modules in load order.
func (mgr *Manager) Names() []string {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return lo.Map(mgr.modules, func(m *module, _ int) string { return m.name })
}

// Lookup returns the loaded module called name.
func (mgr *Manager) Lookup(name string) (modlib.Module, bool) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	m, ok := lo.Find(mgr.modules, func(m *module) bool { return m.name == name })
	if !ok {
		return nil, false
	}
	return m.mod, true
}

// Close tears modules down in reverse load order: Cleanup, then the destructor, then the
// library. Every module is torn down even if another one fails.
func (mgr *Manager) Close() error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	var err error
	for i := len(mgr.modules) - 1; i >= 0; i-- {
		m := mgr.modules[i]
		err = multierr.Combine(err, errors.Wrapf(guard("cleanup", m.mod.Cleanup), "module %s", m.name))
		if m.destroy != nil {
			err = multierr.Combine(err, errors.Wrapf(guard("destroy", func() error { m.destroy(m.mod); return nil }), "module %s", m.name))
		}
		if m.lib != nil {
			err = multierr.Combine(err, errors.Wrapf(m.lib.Close(), "module %s", m.name))
		}
		mgr.logger.Debugw("unloaded module", "name", m.name)
	}
	mgr.modules = nil
	return err
}

func construct(factory modlib.Factory) (mod modlib.Module, err error) {
	err = guard("factory", func() error {
		mod = factory()
		return nil
	})
	if err == nil && mod == nil {
		err = errors.New("factory returned no module")
	}
	return mod, err
}

// guard runs fn, converting a panic inside module code into an error.
func guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("module panicked during %s: %v", stage, r)
		}
	}()
	return errors.Wrap(fn(), stage)
}

func infoOrUnknown(fn modlib.InfoFunc) string {
	if fn == nil {
		return modlib.Unknown
	}
	var s string
	if err := guard("info", func() error { s = fn(); return nil }); err != nil || s == "" {
		return modlib.Unknown
	}
	return s
}
