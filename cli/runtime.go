package cli

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/dustwatch/dustwatch/config"
	"github.com/dustwatch/dustwatch/device"
	"github.com/dustwatch/dustwatch/logging"
	"github.com/dustwatch/dustwatch/module/modmanager"
	modmanageroptions "github.com/dustwatch/dustwatch/module/modmanager/options"
	"github.com/dustwatch/dustwatch/module/modmaninterface"
	"github.com/dustwatch/dustwatch/registry"

	// register builtin modules.
	_ "github.com/dustwatch/dustwatch/drivers/register"
)

// runtime is what every command needs: the configuration, a logger and the loaded modules.
type runtime struct {
	cfg        *config.Config
	logger     logging.Logger
	manager    modmaninterface.ModuleManager
	discoverer *device.Discoverer
	inspector  *device.Inspector
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg := config.Default()
	if path := c.String(configFlag); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}

	logger := logging.NewLogger("dustwatch")
	if cfg.LogFile != "" {
		logger = logging.NewFileLogger("dustwatch", cfg.LogFile)
	}
	logger.SetLevel(cfg.Level())
	if c.Bool(debugFlag) {
		logger.SetLevel(logging.DEBUG)
	}
	logging.ReplaceGlobal(logger)

	profile := device.CurrentProfile()
	if cfg.DeviceDir != "" {
		profile.Dir = cfg.DeviceDir
		profile.KnownDevices = nil
		profile.CommonPorts = nil
	}
	if len(cfg.DevicePatterns) > 0 {
		profile.Patterns = cfg.DevicePatterns
	}

	rt := &runtime{
		cfg:        cfg,
		logger:     logger,
		manager:    modmanager.NewManager(logger, modmanageroptions.Options{}),
		discoverer: device.NewDiscoverer(profile),
		inspector:  device.NewInspector(),
	}
	if err := rt.loadModules(); err != nil {
		return nil, multierr.Combine(err, rt.Close())
	}
	return rt, nil
}

// loadModules registers the selected builtin modules, then loads the module directory if
// there is one. Only ending up with no module at all is an error.
func (rt *runtime) loadModules() error {
	builtins := registry.RegisteredModules()
	if len(rt.cfg.BuiltinModules) > 0 {
		for _, name := range lo.Without(rt.cfg.BuiltinModules, builtins...) {
			rt.logger.Warnw("unknown builtin module", "name", name)
		}
		builtins = lo.Filter(builtins, func(name string, _ int) bool { return lo.Contains(rt.cfg.BuiltinModules, name) })
	}
	for _, name := range builtins {
		reg, ok := registry.LookupModule(name)
		if !ok {
			continue
		}
		if err := rt.manager.Register(name, reg.Version, reg.Factory, reg.Destroy); err != nil {
			rt.logger.Warnw("skipping builtin module", "name", name, "error", err)
		}
	}

	var dirErr error
	if rt.cfg.ModuleDir != "" {
		if _, err := os.Stat(rt.cfg.ModuleDir); err == nil {
			dirErr = rt.manager.LoadAll(rt.cfg.ModuleDir)
		} else {
			rt.logger.Debugw("module directory not available", "dir", rt.cfg.ModuleDir, "error", err)
		}
	}

	if len(rt.manager.Names()) == 0 {
		if dirErr != nil {
			return dirErr
		}
		return errors.Errorf("no modules available: %s is empty or missing and no builtin module is selected", rt.cfg.ModuleDir)
	}
	if dirErr != nil {
		rt.logger.Warnw("module directory", "dir", rt.cfg.ModuleDir, "error", dirErr)
	}
	return nil
}

// Close unloads every module.
func (rt *runtime) Close() error {
	return rt.manager.Close()
}

// deviceRow is one line of a device listing.
type deviceRow struct {
	desc   device.Descriptor
	perms  device.Permissions
	module string
	score  float64
}

// scan merges what the modules detected with what the discoverer finds, so that devices no
// module claims are listed too.
func (rt *runtime) scan() []deviceRow {
	detected := rt.manager.DetectAllDevices()
	seen := lo.SliceToMap(detected, func(d device.Descriptor) (string, bool) { return d.Path, true })
	for _, path := range rt.discoverer.Discover() {
		if seen[path] {
			continue
		}
		seen[path] = true
		desc, _ := device.Describe(path, "", rt.inspector)
		detected = append(detected, desc)
	}

	rows := make([]deviceRow, 0, len(detected))
	for _, d := range detected {
		perms := rt.inspector.Inspect(d.Path)
		d.Accessible = perms.Readable && perms.Writable
		row := deviceRow{desc: d, perms: perms, score: rt.manager.Score(d)}
		if mod, ok := rt.manager.FindBestModuleForDevice(d); ok {
			row.module = mod.Name()
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].desc.Path < rows[j].desc.Path })
	return rows
}

// pickDevice returns the descriptor of path, or when path is empty the first accessible device
// some module can handle.
func (rt *runtime) pickDevice(path string) (device.Descriptor, error) {
	rows := rt.scan()
	if path != "" {
		if row, ok := lo.Find(rows, func(r deviceRow) bool { return r.desc.Path == path }); ok {
			return row.desc, nil
		}
		desc, _ := device.Describe(path, "", rt.inspector)
		return desc, nil
	}
	row, ok := lo.Find(rows, func(r deviceRow) bool { return r.module != "" && r.desc.Accessible })
	if !ok {
		return device.Descriptor{}, errors.New("no accessible device with a compatible module; run \"dustwatch devices\" to see why")
	}
	return row.desc, nil
}
