package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/atlanticdynamic/inklynx/internal/fancy"
	"github.com/atlanticdynamic/inklynx/internal/guard"
	"github.com/atlanticdynamic/inklynx/internal/script"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a script for syntax errors without executing it",
		ArgsUsage: "<script.star>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rewritten",
				Usage: "Print the source with loop guard checks injected",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return fmt.Errorf("script file path required")
			}
			path := cmd.Args().Get(0)

			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read script: %w", err)
			}

			name := filepath.Base(path)
			if err := script.Validate(name, string(source)); err != nil {
				return fmt.Errorf("%s: %w", fancy.ErrorText("validation failed"), err)
			}

			loops := guard.CountLoops(string(source))
			fmt.Printf("%s %s %s\n",
				fancy.ValidText("valid:"),
				fancy.PathText(path),
				fancy.SummaryText(fmt.Sprintf("(%d guarded loops)", loops)))

			if cmd.Bool("rewritten") {
				fmt.Println(guard.RewriteSource(string(source), script.GuardCheckName))
			}
			return nil
		},
	}
}
