package modmanager

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/dustwatch/dustwatch/device"
	"github.com/dustwatch/dustwatch/logging"
	modlib "github.com/dustwatch/dustwatch/module"
	modmanageroptions "github.com/dustwatch/dustwatch/module/modmanager/options"
	"github.com/dustwatch/dustwatch/testutils/inject"
)

// libraries serves injected libraries by path.
type libraries map[string]*inject.Library

func (libs libraries) open(path string) (modmanageroptions.Library, error) {
	lib, ok := libs[path]
	if !ok {
		return nil, errors.Errorf("cannot open %s", path)
	}
	return lib, nil
}

func newLibrary(mod modlib.Module, name, version string) *inject.Library {
	syms := map[string]interface{}{
		modlib.NewModuleSymbol: func() modlib.Module { return mod },
	}
	if name != "" {
		syms[modlib.NameSymbol] = func() string { return name }
	}
	if version != "" {
		syms[modlib.VersionSymbol] = func() string { return version }
	}
	return &inject.Library{Symbols: syms}
}

func newTestManager(t *testing.T, libs libraries) *Manager {
	t.Helper()
	return NewManager(logging.NewTestLogger(t), modmanageroptions.Options{Opener: libs.open})
}

func TestLoad(t *testing.T) {
	mod := inject.NewModule("sds011")
	lib := newLibrary(mod, "SDS011", "1.0.0")
	mgr := newTestManager(t, libraries{"/m/sds011_module.so": lib})

	test.That(t, mgr.Load("/m/sds011_module.so"), test.ShouldBeNil)
	test.That(t, mgr.Names(), test.ShouldResemble, []string{"SDS011"})
	test.That(t, mgr.Modules(), test.ShouldResemble, []Info{
		{Name: "SDS011", Version: "1.0.0", Path: "/m/sds011_module.so", Description: "injected sds011"},
	})
	got, ok := mgr.Lookup("SDS011")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got, test.ShouldEqual, mod)
	_, ok = mgr.Lookup("nope")
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, lib.Closed, test.ShouldBeFalse)
	test.That(t, mgr.Close(), test.ShouldBeNil)
	test.That(t, lib.Closed, test.ShouldBeTrue)
	test.That(t, mgr.Names(), test.ShouldBeEmpty)
}

func TestLoadDefaultsUnknown(t *testing.T) {
	mgr := newTestManager(t, libraries{"/m/x_module.so": newLibrary(inject.NewModule("x"), "", "")})
	test.That(t, mgr.Load("/m/x_module.so"), test.ShouldBeNil)
	infos := mgr.Modules()
	test.That(t, infos, test.ShouldHaveLength, 1)
	test.That(t, infos[0].Name, test.ShouldEqual, modlib.Unknown)
	test.That(t, infos[0].Version, test.ShouldEqual, modlib.Unknown)
}

func TestLoadVariableSymbols(t *testing.T) {
	mod := inject.NewModule("var")
	factory := func() modlib.Module { return mod }
	name := func() string { return "VAR" }
	lib := &inject.Library{Symbols: map[string]interface{}{
		modlib.NewModuleSymbol: &factory,
		modlib.NameSymbol:      &name,
	}}
	mgr := newTestManager(t, libraries{"/m/var_module.so": lib})
	test.That(t, mgr.Load("/m/var_module.so"), test.ShouldBeNil)
	test.That(t, mgr.Names(), test.ShouldResemble, []string{"VAR"})
}

func TestLoadFailures(t *testing.T) {
	destroyed := 0
	failingInit := inject.NewModule("bad")
	failingInit.InitializeFunc = func() error { return errors.New("no hardware") }

	for _, tc := range []struct {
		name     string
		symbols  map[string]interface{}
		contains string
	}{
		{
			name:     "missing factory",
			symbols:  map[string]interface{}{modlib.NameSymbol: func() string { return "x" }},
			contains: "missing NewModule",
		},
		{
			name:     "wrong factory type",
			symbols:  map[string]interface{}{modlib.NewModuleSymbol: func() int { return 1 }},
			contains: "expected func() module.Module",
		},
		{
			name:     "nil module",
			symbols:  map[string]interface{}{modlib.NewModuleSymbol: func() modlib.Module { return nil }},
			contains: "factory returned no module",
		},
		{
			name: "factory panics",
			symbols: map[string]interface{}{modlib.NewModuleSymbol: func() modlib.Module {
				panic("boom")
			}},
			contains: "panicked during factory",
		},
		{
			name: "initialize fails",
			symbols: map[string]interface{}{
				modlib.NewModuleSymbol:     func() modlib.Module { return failingInit },
				modlib.DestroyModuleSymbol: func(modlib.Module) { destroyed++ },
			},
			contains: "no hardware",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lib := &inject.Library{Symbols: tc.symbols}
			mgr := newTestManager(t, libraries{"/m/x_module.so": lib})

			err := mgr.Load("/m/x_module.so")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
			var loadErr *LoadError
			test.That(t, errors.As(err, &loadErr), test.ShouldBeTrue)
			test.That(t, loadErr.Path, test.ShouldEqual, "/m/x_module.so")

			test.That(t, lib.Closed, test.ShouldBeTrue)
			test.That(t, mgr.Names(), test.ShouldBeEmpty)
		})
	}
	test.That(t, destroyed, test.ShouldEqual, 1)
}

func TestLoadOpenFailure(t *testing.T) {
	mgr := newTestManager(t, libraries{})
	err := mgr.Load("/m/missing_module.so")
	var loadErr *LoadError
	test.That(t, errors.As(err, &loadErr), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot open")
}

func TestLoadDuplicateName(t *testing.T) {
	second := newLibrary(inject.NewModule("b"), "SAME", "2")
	mgr := newTestManager(t, libraries{
		"/m/a_module.so": newLibrary(inject.NewModule("a"), "SAME", "1"),
		"/m/b_module.so": second,
	})
	test.That(t, mgr.Load("/m/a_module.so"), test.ShouldBeNil)
	err := mgr.Load("/m/b_module.so")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "already loaded")
	test.That(t, second.Closed, test.ShouldBeTrue)
	test.That(t, mgr.Names(), test.ShouldResemble, []string{"SAME"})
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_module.so", "a_module.so", "broken_module.so", "readme.txt", "libother.so"} {
		test.That(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644), test.ShouldBeNil)
	}
	test.That(t, os.Mkdir(filepath.Join(dir, "dir_module.so"), 0o755), test.ShouldBeNil)

	var opened []string
	libs := libraries{
		filepath.Join(dir, "a_module.so"): newLibrary(inject.NewModule("a"), "A", "1"),
		filepath.Join(dir, "b_module.so"): newLibrary(inject.NewModule("b"), "B", "1"),
		filepath.Join(dir, "libother.so"): newLibrary(inject.NewModule("o"), "O", "1"),
	}
	mgr := NewManager(logging.NewTestLogger(t), modmanageroptions.Options{
		Opener: func(path string) (modmanageroptions.Library, error) {
			opened = append(opened, filepath.Base(path))
			return libs.open(path)
		},
	})

	test.That(t, mgr.LoadAll(dir), test.ShouldBeNil)
	test.That(t, opened, test.ShouldResemble, []string{"a_module.so", "b_module.so", "broken_module.so"})
	test.That(t, mgr.Names(), test.ShouldResemble, []string{"A", "B"})
}

func TestLoadAllFollowsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "libsds011.so.1")
	test.That(t, os.WriteFile(target, nil, 0o644), test.ShouldBeNil)
	test.That(t, os.Symlink(target, filepath.Join(dir, "sds011_module.so")), test.ShouldBeNil)
	test.That(t, os.Symlink(filepath.Join(dir, "gone.so.1"), filepath.Join(dir, "dangling_module.so")), test.ShouldBeNil)

	var opened []string
	libs := libraries{
		filepath.Join(dir, "sds011_module.so"): newLibrary(inject.NewModule("sds011"), "SDS011", "1.0.0"),
	}
	mgr := NewManager(logging.NewTestLogger(t), modmanageroptions.Options{
		Opener: func(path string) (modmanageroptions.Library, error) {
			opened = append(opened, filepath.Base(path))
			return libs.open(path)
		},
	})

	test.That(t, mgr.LoadAll(dir), test.ShouldBeNil)
	test.That(t, opened, test.ShouldResemble, []string{"sds011_module.so"})
	test.That(t, mgr.Names(), test.ShouldResemble, []string{"SDS011"})
	test.That(t, mgr.Close(), test.ShouldBeNil)
}

func TestLoadAllNothingLoaded(t *testing.T) {
	dir := t.TempDir()
	mgr := newTestManager(t, libraries{})

	err := mgr.LoadAll(dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no modules found")

	test.That(t, os.WriteFile(filepath.Join(dir, "x_module.so"), nil, 0o644), test.ShouldBeNil)
	err = mgr.LoadAll(dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no modules loaded")
	var loadErr *LoadError
	test.That(t, errors.As(err, &loadErr), test.ShouldBeTrue)

	err = mgr.LoadAll(filepath.Join(dir, "missing"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegister(t *testing.T) {
	mgr := newTestManager(t, libraries{})
	destroyed := false
	mod := inject.NewModule("builtin")
	test.That(t, mgr.Register("SDS011", "1.0.0", func() modlib.Module { return mod }, func(modlib.Module) { destroyed = true }), test.ShouldBeNil)
	test.That(t, mgr.Modules()[0].Path, test.ShouldEqual, "builtin:SDS011")

	test.That(t, mgr.Register("nil", "1", nil, nil), test.ShouldNotBeNil)

	test.That(t, mgr.Close(), test.ShouldBeNil)
	test.That(t, destroyed, test.ShouldBeTrue)
}

func scoring(name string, score float64, handles bool) *inject.Module {
	mod := inject.NewModule(name)
	mod.CanHandleDeviceFunc = func(device.Descriptor) bool { return handles }
	mod.DeviceMatchScoreFunc = func(device.Descriptor) float64 { return score }
	return mod
}

func registerAll(t *testing.T, mgr *Manager, mods ...*inject.Module) {
	t.Helper()
	for _, mod := range mods {
		mod := mod
		test.That(t, mgr.Register(mod.Name(), "1", func() modlib.Module { return mod }, nil), test.ShouldBeNil)
	}
}

func TestFindBestModuleForDevice(t *testing.T) {
	d := device.Descriptor{Path: "/dev/ttyUSB0"}

	t.Run("highest wins", func(t *testing.T) {
		mgr := newTestManager(t, libraries{})
		low, high := scoring("low", 0.5, true), scoring("high", 2.6, true)
		registerAll(t, mgr, low, high, scoring("refuses", 9, false))
		best, ok := mgr.FindBestModuleForDevice(d)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, best, test.ShouldEqual, high)
		test.That(t, mgr.Score(d), test.ShouldEqual, 2.6)
	})

	t.Run("ties keep load order", func(t *testing.T) {
		mgr := newTestManager(t, libraries{})
		first, second := scoring("first", 1, true), scoring("second", 1, true)
		registerAll(t, mgr, first, second)
		for i := 0; i < 10; i++ {
			best, ok := mgr.FindBestModuleForDevice(d)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, best, test.ShouldEqual, first)
		}
	})

	t.Run("zero score is no match", func(t *testing.T) {
		mgr := newTestManager(t, libraries{})
		registerAll(t, mgr, scoring("zero", 0, true), scoring("negative", -1, true))
		_, ok := mgr.FindBestModuleForDevice(d)
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, mgr.Score(d), test.ShouldEqual, 0)
	})
}

func TestDetectAllDevicesDedupes(t *testing.T) {
	a := inject.NewModule("a")
	a.DetectDevicesFunc = func() []device.Descriptor {
		return []device.Descriptor{
			{Path: "/dev/ttyUSB0", VendorID: "1a86", ProductID: "7523", Description: "from a"},
			{Path: "/dev/ttyUSB1"},
		}
	}
	b := inject.NewModule("b")
	b.DetectDevicesFunc = func() []device.Descriptor {
		return []device.Descriptor{
			{Path: "/dev/ttyUSB0", VendorID: "1a86", ProductID: "7523", Description: "from b"},
			{Path: "/dev/ttyACM0"},
		}
	}
	mgr := newTestManager(t, libraries{})
	registerAll(t, mgr, a, b)

	devices := mgr.DetectAllDevices()
	test.That(t, devices, test.ShouldHaveLength, 3)
	test.That(t, devices[0].Description, test.ShouldEqual, "from a")
	test.That(t, devices[1].Path, test.ShouldEqual, "/dev/ttyUSB1")
	test.That(t, devices[2].Path, test.ShouldEqual, "/dev/ttyACM0")
}

func TestCloseOrder(t *testing.T) {
	var events []string
	newTracked := func(name string) (string, *inject.Library) {
		mod := inject.NewModule(name)
		mod.CleanupFunc = func() error {
			events = append(events, "cleanup "+name)
			if name == "b" {
				return errors.New("stuck")
			}
			return nil
		}
		lib := newLibrary(mod, name, "1")
		lib.Symbols[modlib.DestroyModuleSymbol] = func(modlib.Module) { events = append(events, "destroy "+name) }
		lib.CloseFunc = func() error {
			events = append(events, "close "+name)
			return nil
		}
		return "/m/" + name + "_module.so", lib
	}

	libs := libraries{}
	var paths []string
	for _, name := range []string{"a", "b", "c"} {
		path, lib := newTracked(name)
		libs[path] = lib
		paths = append(paths, path)
	}
	mgr := newTestManager(t, libs)
	for _, path := range paths {
		test.That(t, mgr.Load(path), test.ShouldBeNil)
	}

	err := mgr.Close()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "stuck")
	test.That(t, events, test.ShouldResemble, []string{
		"cleanup c", "destroy c", "close c",
		"cleanup b", "destroy b", "close b",
		"cleanup a", "destroy a", "close a",
	})
}

func TestIsModuleFile(t *testing.T) {
	test.That(t, IsModuleFile("sds011_module.so"), test.ShouldBeTrue)
	test.That(t, IsModuleFile("libsds011_module.so.1"), test.ShouldBeTrue)
	test.That(t, IsModuleFile("sds011.so"), test.ShouldBeFalse)
	test.That(t, IsModuleFile("module.txt"), test.ShouldBeFalse)
	test.That(t, isModuleFile("x_module.dylib", []string{".so", ".dylib"}), test.ShouldBeTrue)
	test.That(t, isModuleFile("x_module.dylib", []string{".so"}), test.ShouldBeFalse)
}

func TestRegisterWarnsOnOddVersion(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	mgr := NewManager(logger, modmanageroptions.Options{Opener: libraries{}.open})
	defer func() {
		test.That(t, mgr.Close(), test.ShouldBeNil)
	}()

	for name, version := range map[string]string{"a": "1.2.3", "b": "v2.0.0-rc1", "c": modlib.Unknown, "d": "banana"} {
		mod := inject.NewModule(name)
		test.That(t, mgr.Register(name, version, func() modlib.Module { return mod }, nil), test.ShouldBeNil)
	}
	warnings := logs.FilterMessage("module version is not a semantic version").All()
	test.That(t, warnings, test.ShouldHaveLength, 1)
	test.That(t, warnings[0].ContextMap()["version"], test.ShouldEqual, "banana")
}
