// Package session binds one device to the module chosen for it and drives the read loop.
package session

import (
	"context"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/dustwatch/dustwatch/device"
	"github.com/dustwatch/dustwatch/logging"
	"github.com/dustwatch/dustwatch/module"
)

// State is where a session is in its lifecycle.
type State int

// Session states. Idle → Matching → Connected → Reading ⇄ Error → Closed.
// Selecting a device from Connected, Reading or Error releases the open sensor first and
// goes back to Matching.
const (
	StateIdle State = iota
	StateMatching
	StateConnected
	StateReading
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMatching:
		return "matching"
	case StateConnected:
		return "connected"
	case StateReading:
		return "reading"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Matcher picks the module for a device.
type Matcher interface {
	FindBestModuleForDevice(d device.Descriptor) (module.Module, bool)
}

// A Session owns at most one open sensor. It is driven by a single goroutine; State and the
// reading accessors may be called from others.
type Session struct {
	id      uuid.UUID
	mu      sync.Mutex
	logger  logging.Logger
	matcher Matcher
	opts    options

	state    State
	desc     device.Descriptor
	mod      module.Module
	sensor   module.Sensor
	ui       module.UI
	readings []module.Reading
	lastErr  error
	// generation changes whenever the sensor is replaced or released.
	generation uint64
}

// New makes a new idle session.
func New(matcher Matcher, logger logging.Logger, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.inspector == nil {
		o.inspector = device.NewInspector()
	}
	return &Session{
		id:      uuid.New(),
		logger:  logger.Sublogger("session"),
		matcher: matcher,
		opts:    o,
	}
}

// Select matches d to a module, checks that the device may be opened and opens it. Selecting
// while connected releases the previous device first. On failure the session is idle and a
// *SelectError says why.
func (s *Session) Select(ctx context.Context, d device.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	if err := s.releaseLocked(); err != nil {
		s.logger.Warnw("error releasing previous device", "path", s.desc.Path, "error", err)
	}

	s.state = StateMatching
	s.desc = d
	mod, ok := s.matcher.FindBestModuleForDevice(d)
	if !ok {
		return s.failLocked(&SelectError{Reason: ReasonNoCompatibleModule, Device: d})
	}

	perms := s.opts.inspector.Inspect(d.Path)
	if perms.Exists && !(perms.Readable && perms.Writable) {
		return s.failLocked(&SelectError{Reason: ReasonPermissionDenied, Device: d, Permissions: perms})
	}

	sensor, err := mod.CreateSensor()
	if err != nil {
		return s.failLocked(&SelectError{Reason: ReasonChannelOpen, Device: d, Permissions: perms, Err: err})
	}
	if err := sensor.Initialize(ctx, d.Path); err != nil {
		goutils.UncheckedError(sensor.Cleanup())
		// The open may have failed for a reason the first inspection could not see.
		perms = s.opts.inspector.Inspect(d.Path)
		reason := ReasonChannelOpen
		if errors.Is(err, fs.ErrPermission) || (perms.Exists && !(perms.Readable && perms.Writable)) {
			reason = ReasonPermissionDenied
		}
		return s.failLocked(&SelectError{Reason: reason, Device: d, Permissions: perms, Err: err})
	}

	ui, err := mod.CreateUI()
	if err != nil {
		s.logger.Debugw("module has no UI", "module", mod.Name(), "error", err)
		ui = nil
	}

	s.mod, s.sensor, s.ui = mod, sensor, ui
	s.generation++
	s.readings = nil
	s.lastErr = nil
	s.state = StateConnected
	s.logger.Infow("connected", "session", s.id, "path", d.Path, "module", mod.Name())
	return nil
}

func (s *Session) failLocked(err *SelectError) error {
	s.state = StateIdle
	s.logger.Warnw("cannot select device", "session", s.id, "path", err.Device.Path, "reason", err.Reason.String())
	return err
}

// Poll performs one logical read: the retry policy around the sensor's single read cycle. A
// successful reading is buffered. When every attempt fails the session enters the error state
// and the error wraps protocol.ErrReadTimeout; when the device is gone the session closes and
// ErrChannelLost is returned.
func (s *Session) Poll(ctx context.Context) (module.Reading, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	sensor, path, policy, generation := s.sensor, s.desc.Path, s.opts.retryPolicy, s.generation
	s.mu.Unlock()
	if sensor == nil {
		return nil, ErrNotConnected
	}

	var reading module.Reading
	err := policy.Do(ctx, func(ctx context.Context) error {
		r, err := sensor.ReadData(ctx)
		if err != nil {
			return err
		}
		reading = r
		return nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed || s.generation != generation {
		return nil, ErrClosed
	}
	if err == nil {
		s.appendLocked(reading)
		s.state = StateReading
		return reading, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	if !s.opts.inspector.Inspect(path).Exists {
		s.logger.Warnw("device disappeared", "path", path)
		goutils.UncheckedError(s.closeLocked())
		return nil, errors.Wrapf(ErrChannelLost, "%s: %v", path, err)
	}
	s.state = StateError
	s.lastErr = err
	return nil, err
}

func (s *Session) appendLocked(r module.Reading) {
	s.readings = append(s.readings, r)
	if over := len(s.readings) - s.opts.bufferSize; over > 0 {
		s.readings = append([]module.Reading(nil), s.readings[over:]...)
	}
}

// Run polls every interval until ctx is done or the channel is lost, handing each reading or
// error to fn. The session is closed when Run returns. Cancellation is not an error.
func (s *Session) Run(ctx context.Context, interval time.Duration, fn func(module.Reading, error)) (err error) {
	defer func() {
		err = multierr.Combine(err, s.Close())
	}()
	for {
		if ctx.Err() != nil {
			return nil
		}
		r, err := s.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		fn(r, err)
		if errors.Is(err, ErrChannelLost) || errors.Is(err, ErrClosed) || errors.Is(err, ErrNotConnected) {
			return err
		}
		if !goutils.SelectContextOrWait(ctx, interval) {
			return nil
		}
	}
}

// Close releases the sensor. A closed session stays closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	err := s.releaseLocked()
	s.state = StateClosed
	return err
}

func (s *Session) releaseLocked() error {
	if s.sensor == nil {
		return nil
	}
	err := s.sensor.Cleanup()
	s.sensor, s.ui = nil, nil
	s.generation++
	s.state = StateIdle
	s.logger.Debugw("released device", "path", s.desc.Path)
	return errors.Wrapf(err, "releasing %s", s.desc.Path)
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns the selected device.
func (s *Session) Device() device.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// Module returns the module of the selected device, or nil.
func (s *Session) Module() module.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mod
}

// UI returns the module UI of the connected device, which may be nil.
func (s *Session) UI() module.UI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui
}

// LastError returns the error that put the session in the error state.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Readings returns the buffered readings, oldest first. They stay available after Close.
func (s *Session) Readings() []module.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]module.Reading(nil), s.readings...)
}

// Clear drops the buffered readings.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	s.readings = nil
	return nil
}

// Stats summarizes each measurement over the buffered readings.
func (s *Session) Stats() map[string]Stats {
	return computeStats(s.Readings())
}
