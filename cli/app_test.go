package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/dustwatch/dustwatch/session"
)

func writeConfig(t *testing.T, attrs map[string]interface{}) string {
	t.Helper()
	dir := t.TempDir()
	if _, ok := attrs["module_dir"]; !ok {
		attrs["module_dir"] = dir
	}
	raw, err := json.Marshal(attrs)
	test.That(t, err, test.ShouldBeNil)
	path := filepath.Join(dir, "dustwatch.json")
	test.That(t, os.WriteFile(path, raw, 0o600), test.ShouldBeNil)
	return path
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"dustwatch"}, args...))
	return out.String(), errOut.String(), err
}

func TestModulesCommand(t *testing.T) {
	cfg := writeConfig(t, map[string]interface{}{"log_level": "error"})
	out, _, err := runApp(t, "--config", cfg, "modules")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "SDS011")
	test.That(t, out, test.ShouldContainSubstring, "builtin:SDS011")
	test.That(t, out, test.ShouldContainSubstring, "1.0.0")
}

func TestNoModulesAvailable(t *testing.T) {
	cfg := writeConfig(t, map[string]interface{}{
		"log_level":       "error",
		"builtin_modules": []string{"nonexistent"},
	})
	_, _, err := runApp(t, "--config", cfg, "modules")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no modules found")
}

func TestBadConfig(t *testing.T) {
	cfg := writeConfig(t, map[string]interface{}{"log_level": "loud"})
	_, _, err := runApp(t, "--config", cfg, "modules")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown log level")
}

func TestDevicesCommand(t *testing.T) {
	if _, err := os.Stat("/dev/null"); err != nil {
		t.Skip("no /dev/null on this platform")
	}
	cfg := writeConfig(t, map[string]interface{}{
		"log_level":       "error",
		"device_dir":      "/dev",
		"device_patterns": []string{"null"},
	})
	out, _, err := runApp(t, "--config", cfg, "devices")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "/dev/null")
	test.That(t, out, test.ShouldContainSubstring, "rw-rw-rw-")
	test.That(t, out, test.ShouldContainSubstring, "R/W Access")
}

func TestReadUnsupportedDevice(t *testing.T) {
	if _, err := os.Stat("/dev/null"); err != nil {
		t.Skip("no /dev/null on this platform")
	}
	cfg := writeConfig(t, map[string]interface{}{"log_level": "error"})
	_, _, err := runApp(t, "--config", cfg, "read", "--device", "/dev/null")
	test.That(t, err, test.ShouldNotBeNil)

	var selectErr *session.SelectError
	test.That(t, errors.As(err, &selectErr), test.ShouldBeTrue)
	test.That(t, selectErr.Reason, test.ShouldEqual, session.ReasonNoCompatibleModule)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported device /dev/null")
}

func TestConfigSchemaCommand(t *testing.T) {
	out, _, err := runApp(t, "config-schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "module_dir")
	test.That(t, out, test.ShouldContainSubstring, "poll_interval")
	test.That(t, out, test.ShouldNotContainSubstring, "ConfigFilePath")
}
