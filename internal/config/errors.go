package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is the base error type for configuration errors.
	ErrConfig = errors.New("config error")

	// ErrMissingFile indicates the settings file does not exist.
	ErrMissingFile = fmt.Errorf("%w: file not found", ErrConfig)

	// ErrUnsupportedExt indicates a settings file with an extension no
	// loader handles.
	ErrUnsupportedExt = fmt.Errorf("%w: unsupported file extension", ErrConfig)

	// ErrParse indicates the settings file failed to parse.
	ErrParse = fmt.Errorf("%w: parse failed", ErrConfig)

	// ErrInvalidTimeout indicates a non-positive script timeout.
	ErrInvalidTimeout = fmt.Errorf("%w: script timeout must be positive", ErrConfig)

	// ErrInvalidFPS indicates a non-positive default frame rate.
	ErrInvalidFPS = fmt.Errorf("%w: default fps must be positive", ErrConfig)

	// ErrInvalidLogLevel indicates an unrecognized log level.
	ErrInvalidLogLevel = fmt.Errorf("%w: invalid log level", ErrConfig)

	// ErrInvalidLogFormat indicates an unrecognized log format.
	ErrInvalidLogFormat = fmt.Errorf("%w: invalid log format", ErrConfig)
)
