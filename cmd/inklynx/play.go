package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robbyt/go-supervisor/supervisor"
	"github.com/urfave/cli/v3"

	"github.com/atlanticdynamic/inklynx/internal/animation"
	"github.com/atlanticdynamic/inklynx/internal/scheduler"
)

func playCommand() *cli.Command {
	flags := settingsFlags()
	flags = append(flags,
		&cli.DurationFlag{
			Name:  "for",
			Usage: "Stop playback after this long (default: until the animation completes or SIGINT)",
		},
	)

	return &cli.Command{
		Name:      "play",
		Usage:     "Execute a script and play its animation",
		ArgsUsage: "<script.star>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			inst, cfg, err := buildInstance(cmd)
			if err != nil {
				return err
			}
			handler := buildLogHandler(cfg)

			if err := inst.Run(ctx, scheduler.Request{IncludeControlsUpdate: true}); err != nil {
				return fmt.Errorf("execution failed: %w", err)
			}
			if out := inst.Outcome(); out.Failed() {
				return fmt.Errorf("script failed: %s", out.Error)
			}

			timeline := inst.Timeline()
			if timeline == nil {
				return fmt.Errorf("script declares no animation")
			}

			if limit := cmd.Duration("for"); limit > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, limit)
				defer cancel()
			}

			timeline.Play()
			runner, err := animation.NewRunner(timeline,
				animation.WithContext(ctx),
				animation.WithLogHandler(handler),
			)
			if err != nil {
				return fmt.Errorf("failed to create animation runner: %w", err)
			}

			super, err := supervisor.New(
				supervisor.WithContext(ctx),
				supervisor.WithLogHandler(handler),
				supervisor.WithRunnables(runner),
			)
			if err != nil {
				return fmt.Errorf("failed to create supervisor: %w", err)
			}

			start := time.Now()
			if err := super.Run(); err != nil {
				return fmt.Errorf("playback failed: %w", err)
			}

			printOutcome(cmd.Args().Get(0), inst)
			fmt.Printf("played for %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
