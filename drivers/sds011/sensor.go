package sds011

import (
	"context"
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/dustwatch/dustwatch/logging"
	"github.com/dustwatch/dustwatch/module"
	"github.com/dustwatch/dustwatch/protocol"
	"github.com/dustwatch/dustwatch/serial"
)

// ErrNotConnected is returned by ReadData before Initialize succeeded or after Cleanup.
var ErrNotConnected = errors.New("sensor is not connected")

// Sensor reads measurement frames from one SDS011.
type Sensor struct {
	mu      sync.Mutex
	logger  logging.Logger
	clk     clock.Clock
	options serial.Options
	dev     io.ReadWriteCloser
	path    string
}

func newSensor(logger logging.Logger, clk clock.Clock, options serial.Options) *Sensor {
	return &Sensor{logger: logger, clk: clk, options: options}
}

// Initialize opens the serial port at devicePath, closing any port opened before.
func (s *Sensor) Initialize(ctx context.Context, devicePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev != nil {
		if err := s.dev.Close(); err != nil {
			s.logger.Debugw("error closing previous port", "path", s.path, "error", err)
		}
		s.dev = nil
	}
	dev, err := serial.Open(devicePath, s.options)
	if err != nil {
		return err
	}
	s.dev, s.path = dev, devicePath
	s.logger.Infow("serial port initialized", "path", devicePath, "baud", s.options.BaudRate)
	return nil
}

// IsConnected reports whether the port is open.
func (s *Sensor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev != nil
}

// ReadData reads and decodes a single frame. Partial, misaligned and corrupt frames are
// reported with the transient errors of the protocol package.
func (s *Sensor) ReadData(ctx context.Context) (module.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil, ErrNotConnected
	}

	frame, err := protocol.ReadFrame(s.dev, Spec)
	if err != nil {
		return nil, err
	}
	m, err := Decode(frame)
	if err != nil {
		s.logger.Debugw("dropping frame", "frame", frame, "error", err)
		return nil, err
	}
	return &Reading{Measurement: m, At: s.clk.Now()}, nil
}

// Cleanup closes the port. It is safe to call more than once.
func (s *Sensor) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	err := s.dev.Close()
	s.dev = nil
	return errors.Wrapf(err, "cannot close %s", s.path)
}
