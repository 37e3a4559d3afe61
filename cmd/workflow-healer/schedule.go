package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/healer"
	"github.com/growthcohq/workflow-healer/pkg/runlock"
	"github.com/growthcohq/workflow-healer/pkg/web"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func NewScheduleCommand() *cli.Command {
	flags := append(sharedFlags(),
		&cli.StringFlag{
			Name:    "cron",
			Usage:   "Cron expression for healing runs",
			Value:   "0 7 * * *",
			Sources: cli.EnvVars("HEALER_CRON"),
		},
		&cli.StringFlag{
			Name:    "timezone",
			Usage:   "IANA timezone the cron expression is evaluated in",
			Value:   "UTC",
			Sources: cli.EnvVars("HEALER_TIMEZONE"),
		},
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "Address of the status server",
			Value:   ":9092",
			Sources: cli.EnvVars("HEALER_LISTEN"),
		},
		&cli.BoolFlag{
			Name:    "run-on-start",
			Usage:   "Run one healing pass immediately after starting",
			Sources: cli.EnvVars("HEALER_RUN_ON_START"),
		},
	)

	return &cli.Command{
		Name:    "schedule",
		Aliases: []string{"s"},
		Usage:   "Run healing passes on a cron schedule and serve the latest briefing",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			location, err := time.LoadLocation(command.String("timezone"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid timezone: %v", err), exitInvalid)
			}

			schedule, err := cron.ParseStandard(command.String("cron"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid cron expression %q: %v", command.String("cron"), err), exitInvalid)
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, command, "workflow-healer-scheduler")
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			opts := healer.Options{
				Business: command.String("business"),
				Budget:   command.Duration("budget"),
			}

			job := func() {
				_, err := a.run(ctx, opts)

				switch {
				case errors.Is(err, runlock.ErrRunInProgress):
					a.logger.InfoContext(ctx, "Skipping scheduled run, another run holds the lock")
				case err != nil:
					a.logger.ErrorContext(ctx, "Scheduled healing run failed", "error", err)
				}
			}

			scheduler := cron.New(
				cron.WithLocation(location),
				cron.WithChain(
					cron.SkipIfStillRunning(cron.DefaultLogger),
					cron.Recover(cron.DefaultLogger),
				),
			)
			scheduler.Schedule(schedule, cron.FuncJob(job))

			server := web.NewServer(a.logger, a.store, a.metrics)

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return server.Start(command.String("listen"))
			})

			g.Go(func() error {
				<-gctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
				defer cancel()

				<-scheduler.Stop().Done()

				return server.Shutdown(shutdownCtx)
			})

			scheduler.Start()
			a.logger.InfoContext(ctx, "Scheduler started",
				"cron", command.String("cron"),
				"timezone", location.String(),
				"next", schedule.Next(time.Now().In(location)),
				"listen", command.String("listen"),
			)

			if command.Bool("run-on-start") {
				go job()
			}

			err = g.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			a.logger.InfoContext(ctx, "Scheduler stopped")

			return nil
		},
	}
}
