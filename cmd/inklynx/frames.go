package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/atlanticdynamic/inklynx/internal/scheduler"
)

func framesCommand() *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "Execute a script and dump its precomputed frame cache as JSON",
		ArgsUsage: "<script.star>",
		Flags:     settingsFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			inst, _, err := buildInstance(cmd)
			if err != nil {
				return err
			}

			if err := inst.Run(ctx, scheduler.Request{}); err != nil {
				return fmt.Errorf("execution failed: %w", err)
			}
			if out := inst.Outcome(); out.Failed() {
				return fmt.Errorf("script failed: %s", out.Error)
			}
			if inst.Cache().Len() == 0 {
				return fmt.Errorf("script registered no frames")
			}

			payload, err := json.MarshalIndent(inst.Cache(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize frame cache: %w", err)
			}
			fmt.Println(string(payload))
			return nil
		},
	}
}
