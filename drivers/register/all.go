// Package register registers all modules linked into the binary.
package register

import (
	// register modules.
	_ "github.com/dustwatch/dustwatch/drivers/sds011"
)
