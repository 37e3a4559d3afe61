package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/growthcohq/workflow-healer/pkg/cmd"
	"github.com/growthcohq/workflow-healer/pkg/config"
	"github.com/growthcohq/workflow-healer/pkg/engine"
	"github.com/growthcohq/workflow-healer/pkg/eventbus"
	"github.com/growthcohq/workflow-healer/pkg/healer"
	"github.com/growthcohq/workflow-healer/pkg/log"
	"github.com/growthcohq/workflow-healer/pkg/metrics"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/otelhelper"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"github.com/growthcohq/workflow-healer/pkg/runlock"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const (
	exitFailure     = 1
	exitInvalid     = 2
	exitUnreachable = 3
)

// Static error variables for linter compliance.
var ErrInvalidOutput = errors.New("output must be text or json")

func sharedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "business",
			Aliases: []string{"b"},
			Usage:   "Restrict detection and resolution to one business",
			Sources: cli.EnvVars("HEALER_BUSINESS"),
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the thresholds YAML file (built-in defaults when empty)",
			Sources: cli.EnvVars("HEALER_CONFIG"),
		},
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Log store URL (postgres://... or a directory for the file store)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:     "engine-url",
			Usage:    "Base URL of the orchestration engine API",
			Required: true,
			Sources:  cli.EnvVars("ENGINE_URL"),
		},
		&cli.StringFlag{
			Name:    "engine-api-key",
			Usage:   "API key for the orchestration engine",
			Sources: cli.EnvVars("ENGINE_API_KEY"),
		},
		&cli.DurationFlag{
			Name:    "budget",
			Usage:   "Time budget for detection and resolution (config value when zero)",
			Sources: cli.EnvVars("HEALER_BUDGET"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel, none)",
			Value:   "none",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma-separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for the run lock (disabled when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "metrics-textfile",
			Usage:   "Write Prometheus metrics to this file after every run",
			Sources: cli.EnvVars("METRICS_TEXTFILE"),
		},
		&cli.BoolFlag{
			Name:    "otel",
			Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// app holds everything a healing run needs and knows how to tear it down.
type app struct {
	logger   *slog.Logger
	healer   *healer.Healer
	store    persistence.Store
	bus      eventbus.EventBus
	locker   runlock.Locker
	metrics  *metrics.Metrics
	shutdown otelhelper.ShutdownFunc
	textfile string
}

func newApp(ctx context.Context, command *cli.Command, module string) (*app, error) {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule(module)

	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitInvalid)
	}

	client, err := engine.NewHTTPClient(engine.Config{
		BaseURL: command.String("engine-url"),
		APIKey:  command.String("engine-api-key"),
	}, logger)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitInvalid)
	}

	a := &app{
		logger:   logger,
		metrics:  metrics.New(),
		textfile: command.String("metrics-textfile"),
		shutdown: func(context.Context) error { return nil },
	}

	var tracer trace.Tracer

	if command.Bool("otel") {
		tracer, a.shutdown, err = otelhelper.NewTracer(ctx, "workflow-healer")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	a.store, err = cmd.NewStore(ctx, logger, command.String("database-url"))
	if err != nil {
		a.Close(ctx)

		return nil, cli.Exit(fmt.Sprintf("failed to open log store: %v", err), exitInvalid)
	}

	a.bus, err = cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		a.Close(ctx)

		return nil, cli.Exit(err.Error(), exitInvalid)
	}

	a.locker, err = cmd.NewLocker(ctx, logger, command.String("redis-url"))
	if err != nil {
		// Runs go ahead unlocked rather than not at all.
		logger.WarnContext(ctx, "Run lock unavailable, continuing without it", "error", err)

		a.locker = runlock.Noop{}
	}

	a.healer = healer.New(logger, cfg, client, a.store, a.bus, a.locker, a.metrics, tracer)

	return a, nil
}

// run executes one healing pass and refreshes the metrics textfile whether
// or not the pass produced a briefing.
func (a *app) run(ctx context.Context, opts healer.Options) (*models.MorningBriefing, error) {
	briefing, err := a.healer.Run(ctx, opts)

	if a.textfile != "" {
		if werr := a.metrics.WriteTextfile(a.textfile); werr != nil {
			a.logger.ErrorContext(ctx, "Failed to write metrics textfile", "path", a.textfile, "error", werr)
		}
	}

	return briefing, err
}

// Close releases every resource newApp opened. Nil members are skipped.
func (a *app) Close(ctx context.Context) {
	if a.locker != nil {
		if err := a.locker.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close run lock", "error", err)
		}
	}

	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}

	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	if err := a.shutdown(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	if errors.Is(err, healer.ErrInfrastructureUnreachable) {
		return exitUnreachable
	}

	return exitFailure
}
