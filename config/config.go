// Package config defines the structures to configure dustwatch and read them from files.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/dustwatch/dustwatch/logging"
	"github.com/dustwatch/dustwatch/protocol"
	"github.com/dustwatch/dustwatch/session"
)

// Defaults applied to every field left unset.
const (
	DefaultModuleDir    = "./modules"
	DefaultPollInterval = 2 * time.Second
	DefaultLogLevel     = "info"
)

// A Config describes where modules come from and how devices are read.
type Config struct {
	// ModuleDir is scanned for module libraries. A missing directory is not an error when
	// builtin modules are available.
	ModuleDir string `json:"module_dir"`
	// BuiltinModules selects the linked-in modules to register. Empty means all of them.
	BuiltinModules []string `json:"builtin_modules,omitempty"`

	PollInterval time.Duration `json:"poll_interval"`
	BufferSize   int           `json:"buffer_size"`
	Retry        RetryConfig   `json:"retry"`

	LogLevel string `json:"log_level"`
	// LogFile, when set, also receives logs as JSON and is rotated by size.
	LogFile string `json:"log_file,omitempty"`

	// DeviceDir and DevicePatterns override the platform device profile.
	DeviceDir      string   `json:"device_dir,omitempty"`
	DevicePatterns []string `json:"device_patterns,omitempty"`

	ConfigFilePath string `json:"-"`
}

// RetryConfig configures how many read-and-validate cycles make up one poll.
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	Delay       time.Duration `json:"delay"`
}

// Policy returns the retry policy described by the config.
func (rc RetryConfig) Policy() protocol.RetryPolicy {
	return protocol.RetryPolicy{MaxAttempts: rc.MaxAttempts, Delay: rc.Delay}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ModuleDir == "" {
		c.ModuleDir = DefaultModuleDir
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BufferSize == 0 {
		c.BufferSize = session.DefaultBufferSize
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = protocol.DefaultMaxAttempts
	}
	if c.Retry.Delay == 0 {
		c.Retry.Delay = protocol.DefaultRetryDelay
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.ModuleDir == "" && len(c.BuiltinModules) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "module_dir")
	}
	if c.PollInterval < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("poll_interval %s must not be negative", c.PollInterval))
	}
	if c.BufferSize < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("buffer_size %d must not be negative", c.BufferSize))
	}
	if c.Retry.MaxAttempts < 0 {
		return utils.NewConfigValidationError(path+".retry", errors.Errorf("max_attempts %d must not be negative", c.Retry.MaxAttempts))
	}
	if c.Retry.Delay < 0 {
		return utils.NewConfigValidationError(path+".retry", errors.Errorf("delay %s must not be negative", c.Retry.Delay))
	}
	if _, err := logging.LevelFromString(c.LogLevel); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// Level returns the parsed log level. The config must have been validated.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}
