package session

import (
	"github.com/dustwatch/dustwatch/device"
	"github.com/dustwatch/dustwatch/protocol"
)

// DefaultBufferSize is how many readings a session keeps.
const DefaultBufferSize = 100

// options configures a session.
type options struct {
	retryPolicy protocol.RetryPolicy
	inspector   *device.Inspector
	bufferSize  int
}

func defaultOptions() options {
	return options{
		retryPolicy: protocol.DefaultRetryPolicy(),
		bufferSize:  DefaultBufferSize,
	}
}

// Option configures how we set up a session.
type Option interface {
	apply(*options)
}

// funcOption wraps a function that modifies options into an
// implementation of the Option interface.
type funcOption struct {
	f func(*options)
}

func (fdo *funcOption) apply(do *options) {
	fdo.f(do)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithRetryPolicy returns an Option which sets how many read-and-validate cycles make up one
// poll.
func WithRetryPolicy(policy protocol.RetryPolicy) Option {
	return newFuncOption(func(o *options) {
		o.retryPolicy = policy
	})
}

// WithInspector returns an Option which sets the inspector used for permission checks and
// device presence.
func WithInspector(inspector *device.Inspector) Option {
	return newFuncOption(func(o *options) {
		o.inspector = inspector
	})
}

// WithBufferSize returns an Option which bounds the number of kept readings. Sizes below one
// are ignored.
func WithBufferSize(size int) Option {
	return newFuncOption(func(o *options) {
		if size > 0 {
			o.bufferSize = size
		}
	})
}
