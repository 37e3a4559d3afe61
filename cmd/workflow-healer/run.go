package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/growthcohq/workflow-healer/pkg/healer"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/reporter"
	"github.com/growthcohq/workflow-healer/pkg/runlock"
	cli "github.com/urfave/cli/v3"
)

func NewRunCommand() *cli.Command {
	flags := append(sharedFlags(),
		&cli.BoolFlag{
			Name:    "dry-run",
			Usage:   "Detect and assign levels without retrying, reactivating or writing tasks",
			Sources: cli.EnvVars("HEALER_DRY_RUN"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Briefing format on stdout (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("HEALER_OUTPUT"),
		},
	)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run one healing pass and print the morning briefing",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			output := command.String("output")
			if output != "text" && output != "json" {
				return cli.Exit(ErrInvalidOutput.Error(), exitInvalid)
			}

			a, err := newApp(ctx, command, "workflow-healer")
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			briefing, err := a.run(ctx, healer.Options{
				Business: command.String("business"),
				DryRun:   command.Bool("dry-run"),
				Budget:   command.Duration("budget"),
			})

			switch {
			case errors.Is(err, runlock.ErrRunInProgress):
				a.logger.InfoContext(ctx, "Another healing run holds the lock, nothing to do")

				return nil
			case errors.Is(err, healer.ErrInfrastructureUnreachable):
				return cli.Exit(err.Error(), exitUnreachable)
			case err != nil:
				return err
			}

			return writeBriefing(command.Root().Writer, output, briefing)
		},
	}
}

func writeBriefing(w io.Writer, output string, briefing *models.MorningBriefing) error {
	if output == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(briefing); err != nil {
			return fmt.Errorf("failed to encode briefing: %w", err)
		}

		return nil
	}

	_, err := io.WriteString(w, reporter.Render(*briefing))

	return err
}
