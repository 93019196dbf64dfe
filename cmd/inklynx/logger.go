package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/atlanticdynamic/inklynx/internal/config"
	"github.com/atlanticdynamic/inklynx/internal/logging"
)

// settingsFlags are shared by every command that executes scripts.
func settingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a TOML settings file",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Emit JSON logs instead of styled text",
		},
	}
}

// loadSettings builds the effective configuration from the settings file
// and command-line overrides.
func loadSettings(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.NewConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		cfg = loaded
	}

	if raw := cmd.String("log-level"); raw != "" {
		level, err := config.LevelFromString(raw)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = level
	}
	if cmd.Bool("json") {
		cfg.Logging.Format = config.FormatJSON
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildLogHandler creates the slog handler the settings ask for.
func buildLogHandler(cfg *config.Config) slog.Handler {
	return logging.SetupHandler(cfg.Logging.Format, cfg.Logging.Level, nil)
}

// SetupLogger configures the default logger based on provided log level
func SetupLogger(level config.Level) {
	logging.SetupLogger(level)
}
