// Package testutils is a collection of helpers shared by tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

// DeviceNode creates an empty file named name in dir standing in for a device node. The mode is
// applied with chmod so the umask does not change it.
func DeviceNode(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	test.That(t, os.WriteFile(path, nil, mode), test.ShouldBeNil)
	test.That(t, os.Chmod(path, mode), test.ShouldBeNil)
	return path
}
