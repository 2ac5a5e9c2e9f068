package session

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/dustwatch/dustwatch/device"
)

var (
	// ErrClosed is returned by every operation on a closed session.
	ErrClosed = errors.New("session is closed")
	// ErrChannelLost is returned when the device disappeared while reading from it. The
	// session closes itself when this happens.
	ErrChannelLost = errors.New("channel lost")
	// ErrNotConnected is returned when polling before a device was selected.
	ErrNotConnected = errors.New("no device selected")
)

// Reason classifies why a device could not be selected.
type Reason int

// Selection failure reasons.
const (
	ReasonNoCompatibleModule Reason = iota + 1
	ReasonPermissionDenied
	ReasonChannelOpen
)

func (r Reason) String() string {
	switch r {
	case ReasonNoCompatibleModule:
		return "no compatible module"
	case ReasonPermissionDenied:
		return "permission denied"
	case ReasonChannelOpen:
		return "channel open failed"
	default:
		return "unknown"
	}
}

// SelectError is returned when a session fails to go from matching to connected. The session
// is back in the idle state when it is returned.
type SelectError struct {
	Reason      Reason
	Device      device.Descriptor
	Permissions device.Permissions
	Err         error
}

func (e *SelectError) Error() string {
	switch e.Reason {
	case ReasonNoCompatibleModule:
		return fmt.Sprintf("unsupported device %s: no compatible module", e.Device.Path)
	case ReasonPermissionDenied:
		msg := fmt.Sprintf("permission denied on %s (mode %s)", e.Device.Path, e.Permissions.OctalMode())
		if e.Permissions.Diagnostic != "" {
			msg += ": " + e.Permissions.Diagnostic
		}
		return msg
	default:
		return fmt.Sprintf("cannot open %s: %v", e.Device.Path, e.Err)
	}
}

func (e *SelectError) Unwrap() error {
	return e.Err
}
