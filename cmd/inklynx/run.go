package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/atlanticdynamic/inklynx/internal/config"
	"github.com/atlanticdynamic/inklynx/internal/fancy"
	"github.com/atlanticdynamic/inklynx/internal/scheduler"
	"github.com/atlanticdynamic/inklynx/internal/script"
)

func runCommand() *cli.Command {
	flags := settingsFlags()
	flags = append(flags,
		&cli.StringSliceFlag{
			Name:    "set",
			Aliases: []string{"s"},
			Usage:   "Override a control value, e.g. --set speed=7",
		},
	)

	return &cli.Command{
		Name:      "run",
		Usage:     "Execute a script once and print its outcome",
		ArgsUsage: "<script.star>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			inst, _, err := buildInstance(cmd)
			if err != nil {
				return err
			}

			overrides, err := parseOverrides(cmd.StringSlice("set"))
			if err != nil {
				return err
			}

			req := scheduler.Request{
				ControlValuesOverride: overrides,
				IncludeControlsUpdate: true,
			}
			if err := inst.Run(ctx, req); err != nil {
				return fmt.Errorf("execution failed: %w", err)
			}

			printOutcome(cmd.Args().Get(0), inst)

			if inst.Outcome().Failed() {
				return fmt.Errorf("script failed: %s", inst.Outcome().Error)
			}
			return nil
		},
	}
}

// buildInstance loads settings, reads the script named by the first
// argument, and wires an instance around it.
func buildInstance(cmd *cli.Command) (*script.Instance, *config.Config, error) {
	if cmd.Args().Len() < 1 {
		return nil, nil, fmt.Errorf("script file path required")
	}
	path := cmd.Args().Get(0)

	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	handler := buildLogHandler(cfg)

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read script: %w", err)
	}

	engine, err := script.NewEngine(filepath.Base(path), string(source),
		script.WithTimeout(cfg.Script.Timeout.AsDuration()),
		script.WithDefaultFPS(cfg.Animation.DefaultFPS),
		script.WithMaxFPS(cfg.Animation.MaxFPS),
		script.WithLogHandler(handler),
	)
	if err != nil {
		return nil, nil, err
	}

	inst, err := script.NewInstance(engine,
		script.WithInstanceLogHandler(handler),
	)
	if err != nil {
		return nil, nil, err
	}
	return inst, cfg, nil
}

// parseOverrides turns --set key=value pairs into control overrides,
// guessing the value type the way a settings form would: number, bool,
// then string.
func parseOverrides(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	overrides := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			overrides[key] = f
			continue
		}
		if b, err := strconv.ParseBool(raw); err == nil {
			overrides[key] = b
			continue
		}
		overrides[key] = raw
	}
	return overrides, nil
}

// printOutcome renders the execution result as a styled tree.
func printOutcome(path string, inst *script.Instance) {
	out := inst.Outcome()
	ct := fancy.ScriptTree(path)

	if len(out.Controls) > 0 {
		controls := ct.AddBranch(fancy.SummaryText("controls"))
		for _, c := range out.Controls {
			controls.Child(fancy.ControlNode(c.Label, string(c.Type), out.ControlValues[c.Label]))
		}
	}

	if anim := out.Animation; anim != nil {
		ct.AddChild(fancy.AnimationNode(len(anim.Keyframes), anim.Duration, anim.FPS, anim.Loop))
	}

	if frames := inst.Cache().Len(); frames > 0 {
		ct.AddChild(fancy.FrameCacheNode(frames))
	}

	if out.Failed() {
		ct.AddChild(fancy.ErrorText(out.Error))
	}

	fmt.Println(ct.Tree().String())
}
