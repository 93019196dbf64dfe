// Package logging builds slog handlers for the CLI and the script
// runtime: human-oriented text output via charmbracelet/log, or JSON for
// machine consumption.
package logging

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"

	"github.com/atlanticdynamic/inklynx/internal/config"
)

// SetupHandler builds a slog handler for the given format and level.
func SetupHandler(format config.Format, level config.Level, writer io.Writer) slog.Handler {
	if format == config.FormatJSON {
		return SetupHandlerJSON(level, writer)
	}
	return SetupHandlerText(level, writer)
}

// SetupHandlerText builds a styled text handler. Debug level also turns
// on timestamps so interleaved script runs can be ordered.
func SetupHandlerText(level config.Level, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	reportTimestamp := false
	lvl := charmlog.InfoLevel
	switch level {
	case config.LevelDebug:
		reportTimestamp = true
		lvl = charmlog.DebugLevel
	case config.LevelWarn:
		lvl = charmlog.WarnLevel
	case config.LevelError:
		lvl = charmlog.ErrorLevel
	}

	return charmlog.NewWithOptions(writer, charmlog.Options{
		ReportTimestamp: reportTimestamp,
		Level:           lvl,
	})
}

// SetupHandlerJSON builds a JSON handler.
func SetupHandlerJSON(level config.Level, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stdout
	}

	slogLevel := slog.LevelInfo
	switch level {
	case config.LevelDebug:
		slogLevel = slog.LevelDebug
	case config.LevelWarn:
		slogLevel = slog.LevelWarn
	case config.LevelError:
		slogLevel = slog.LevelError
	}

	return slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slogLevel})
}

// SetupLogger installs a text handler at the given level as the process
// default logger.
func SetupLogger(level config.Level) {
	slog.SetDefault(slog.New(SetupHandlerText(level, nil)))
}
