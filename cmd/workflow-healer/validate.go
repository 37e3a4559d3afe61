package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/growthcohq/workflow-healer/pkg/config"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the thresholds file and cron expression",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the thresholds YAML file",
				Sources: cli.EnvVars("HEALER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "Cron expression to check",
				Value:   "0 7 * * *",
				Sources: cli.EnvVars("HEALER_CRON"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return cli.Exit(err.Error(), exitInvalid)
			}

			if _, err := cron.ParseStandard(command.String("cron")); err != nil {
				return cli.Exit(fmt.Sprintf("invalid cron expression %q: %v", command.String("cron"), err), exitInvalid)
			}

			w := command.Root().Writer

			_, _ = fmt.Fprintf(w, "Configuration is valid\n")
			_, _ = fmt.Fprintf(w, "  businesses:         %s\n", strings.Join(cfg.KnownBusinesses(), ", "))
			_, _ = fmt.Fprintf(w, "  lookback:           %s\n", cfg.Lookback)
			_, _ = fmt.Fprintf(w, "  budget:             %s\n", cfg.Budget)
			_, _ = fmt.Fprintf(w, "  max retries:        %d\n", cfg.MaxRetries)
			_, _ = fmt.Fprintf(w, "  max issues per run: %d\n", cfg.MaxIssuesPerRun)

			return nil
		},
	}
}
