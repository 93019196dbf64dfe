// Package config loads and validates the runtime settings file: the
// script execution budget, animation defaults, and logging options.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied when the settings file omits a value.
const (
	DefaultScriptTimeout = 5 * time.Second
	DefaultFPS           = 30.0
	DefaultMaxFPS        = 120.0
)

// Config is the full runtime settings document.
type Config struct {
	Script    ScriptConfig    `toml:"script"`
	Animation AnimationConfig `toml:"animation"`
	Logging   LogConfig       `toml:"logging"`
}

// ScriptConfig bounds script execution.
type ScriptConfig struct {
	// Timeout is the per-evaluation time budget.
	Timeout Duration `toml:"timeout"`
}

// AnimationConfig sets animation playback defaults.
type AnimationConfig struct {
	// DefaultFPS applies to animations that declare no frame rate.
	DefaultFPS float64 `toml:"default_fps"`

	// MaxFPS caps the frame rate any animation may request.
	MaxFPS float64 `toml:"max_fps"`
}

// LogConfig selects the log output format and verbosity.
type LogConfig struct {
	Format Format `toml:"format"`
	Level  Level  `toml:"level"`
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		Script: ScriptConfig{
			Timeout: FromDuration(DefaultScriptTimeout),
		},
		Animation: AnimationConfig{
			DefaultFPS: DefaultFPS,
			MaxFPS:     DefaultMaxFPS,
		},
		Logging: LogConfig{
			Format: FormatText,
			Level:  LevelInfo,
		},
	}
}

// NewConfig loads a settings file, fills in defaults, and validates. The
// loader is chosen by file extension; only TOML is supported.
func NewConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrConfig, filePath, err)
	}

	switch ext := filepath.Ext(filePath); ext {
	case ".toml":
		return NewConfigFromBytes(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}
}

// NewConfigFromBytes parses TOML settings from memory.
func NewConfigFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults restores defaults for fields an explicit zero value would
// leave unusable.
func (c *Config) applyDefaults() {
	if c.Script.Timeout == 0 {
		c.Script.Timeout = FromDuration(DefaultScriptTimeout)
	}
	if c.Animation.DefaultFPS == 0 {
		c.Animation.DefaultFPS = DefaultFPS
	}
	if c.Animation.MaxFPS == 0 {
		c.Animation.MaxFPS = DefaultMaxFPS
	}
	if c.Logging.Format == FormatUnspecified {
		c.Logging.Format = FormatText
	}
	if c.Logging.Level == LevelUnspecified {
		c.Logging.Level = LevelInfo
	}
}

// Validate checks the configuration's invariants, collecting all
// violations rather than stopping at the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Script.Timeout.AsDuration() <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %s", ErrInvalidTimeout, c.Script.Timeout))
	}
	if c.Animation.DefaultFPS <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrInvalidFPS, c.Animation.DefaultFPS))
	}
	if c.Animation.MaxFPS < c.Animation.DefaultFPS {
		errs = append(errs, fmt.Errorf("%w: max fps %v below default fps %v",
			ErrInvalidFPS, c.Animation.MaxFPS, c.Animation.DefaultFPS))
	}
	if !c.Logging.Format.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format))
	}
	if !c.Logging.Level.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level))
	}

	return errors.Join(errs...)
}

// String returns a short single-line summary for logs.
func (c *Config) String() string {
	return fmt.Sprintf("Config{timeout: %s, fps: %v, log: %s/%s}",
		c.Script.Timeout, c.Animation.DefaultFPS, c.Logging.Format, c.Logging.Level)
}
