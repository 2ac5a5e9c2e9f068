// Package serial provides utilities for opening serial based sensor channels.
package serial

import (
	"io"
	"time"

	goserial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// Options to be passed to Open(), closely mirrors goserial.OpenOptions.
type Options struct {
	BaudRate uint
	DataBits uint
	StopBits uint
	Parity   Parity
	// ReadTimeout bounds each blocking read. A read that sees no bytes for this long returns
	// with whatever it has, possibly nothing. It is rounded down to tenths of a second.
	ReadTimeout time.Duration
}

// Parity describes a serial port parity setting.
type Parity int

const (
	// NoParity disable parity control (default).
	NoParity Parity = iota
	// OddParity enable odd-parity check.
	OddParity
	// EvenParity enable even-parity check.
	EvenParity
)

// DefaultOptions is 9600 8N1 with a half second read timeout.
func DefaultOptions() Options {
	return Options{
		BaudRate:    9600,
		DataBits:    8,
		StopBits:    1,
		Parity:      NoParity,
		ReadTimeout: 500 * time.Millisecond,
	}
}

func (o Options) openOptions(devicePath string) goserial.OpenOptions {
	return goserial.OpenOptions{
		PortName:              devicePath,
		BaudRate:              o.BaudRate,
		DataBits:              o.DataBits,
		StopBits:              o.StopBits,
		ParityMode:            goserial.ParityMode(o.Parity),
		InterCharacterTimeout: uint(o.ReadTimeout / time.Millisecond),
		MinimumReadSize:       0,
	}
}

// Open attempts to open a serial device on the given path. It's a variable
// in case you need to override it during tests.
var Open = func(devicePath string, options Options) (io.ReadWriteCloser, error) {
	if options.ReadTimeout < 100*time.Millisecond {
		return nil, errors.Errorf("read timeout %s is below the 100ms resolution of the line discipline", options.ReadTimeout)
	}
	device, err := goserial.Open(options.openOptions(devicePath))
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial device %q", devicePath)
	}
	return device, nil
}
