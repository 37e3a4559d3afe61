// Package healer drives one detection and resolution run end to end and
// produces its MorningBriefing.
package healer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/growthcohq/workflow-healer/pkg/config"
	"github.com/growthcohq/workflow-healer/pkg/detector"
	"github.com/growthcohq/workflow-healer/pkg/engine"
	"github.com/growthcohq/workflow-healer/pkg/eventbus"
	"github.com/growthcohq/workflow-healer/pkg/events"
	"github.com/growthcohq/workflow-healer/pkg/metrics"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/otelhelper"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"github.com/growthcohq/workflow-healer/pkg/reporter"
	"github.com/growthcohq/workflow-healer/pkg/resolver"
	"github.com/growthcohq/workflow-healer/pkg/runlock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInfrastructureUnreachable means neither the orchestration engine nor
// the log store answered. It is the only error that fails a run.
var ErrInfrastructureUnreachable = errors.New("orchestration engine and log store are both unreachable")

const (
	allBusinesses = "all"
	// lockMargin keeps the run lock alive slightly past the budget so that
	// persisting the briefing is still covered.
	lockMargin  = time.Minute
	pingTimeout = 10 * time.Second
	saveTimeout = 30 * time.Second
)

type Options struct {
	Business string
	DryRun   bool
	// Budget bounds detection and resolution. Zero uses the configured budget.
	Budget time.Duration
}

type Healer struct {
	logger   *slog.Logger
	config   config.Config
	client   engine.Client
	store    persistence.Store
	bus      eventbus.EventBus
	locker   runlock.Locker
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	detector *detector.Detector
	resolver *resolver.Resolver
}

// New wires a Healer. bus, locker and m may be nil.
func New(
	logger *slog.Logger,
	cfg config.Config,
	client engine.Client,
	store persistence.Store,
	bus eventbus.EventBus,
	locker runlock.Locker,
	m *metrics.Metrics,
	tracer trace.Tracer,
) *Healer {
	if bus == nil {
		bus = eventbus.Noop{}
	}

	if locker == nil {
		locker = runlock.Noop{}
	}

	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Healer{
		logger:   logger.With("module", "healer"),
		config:   cfg,
		client:   client,
		store:    store,
		bus:      bus,
		locker:   locker,
		metrics:  m,
		tracer:   tracer,
		detector: detector.New(logger, client, store, cfg, tracer),
		resolver: resolver.New(logger, client, store, cfg, tracer),
	}
}

// Run executes one healing pass. It returns a briefing whenever one could be
// produced, including runs with escalations, failed resolutions or partial
// detection.
func (h *Healer) Run(ctx context.Context, opts Options) (*models.MorningBriefing, error) {
	started := time.Now().UTC()
	runID := uuid.NewString()

	budget := opts.Budget
	if budget <= 0 {
		budget = h.config.Budget
	}

	ctx, span := otelhelper.StartSpan(ctx, h.tracer, "healer.run",
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.String(otelhelper.BusinessKey, opts.Business),
		attribute.Bool(otelhelper.DryRunKey, opts.DryRun),
	)
	defer span.End()

	logger := h.logger.With("runId", runID, "business", opts.Business, "dryRun", opts.DryRun)

	if !opts.DryRun {
		release, err := h.lock(ctx, opts.Business, budget+lockMargin)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.WarnContext(ctx, "Failed to release run lock", "error", err)
			}
		}()
	}

	if err := h.checkInfrastructure(ctx); err != nil {
		logger.ErrorContext(ctx, "Infrastructure unreachable, skipping run", "error", err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	logger.InfoContext(ctx, "Healing run started", "budget", budget)

	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	detection := h.detector.Detect(runCtx, detector.Options{RunID: runID, Business: opts.Business})

	results := make([]models.ResolutionResult, 0, len(detection.Issues))
	for _, issue := range detection.Issues {
		results = append(results, h.resolver.Resolve(runCtx, issue, resolver.Options{RunID: runID, DryRun: opts.DryRun}))
	}

	briefing := reporter.GenerateBriefing(detection, results, reporter.RunMeta{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		DryRun:     opts.DryRun,
		Business:   opts.Business,
		Businesses: h.config.KnownBusinesses(),
	})

	if !opts.DryRun {
		h.persist(ctx, logger, briefing)
		h.publish(ctx, logger, detection, results, briefing)
	}

	if h.metrics != nil {
		h.metrics.ObserveRun(detection, results, &briefing)
	}

	span.SetAttributes(
		attribute.String("healer.status", string(briefing.OverallStatus())),
		attribute.Int("healer.issues", len(briefing.Entries)),
	)

	logger.InfoContext(ctx, "Healing run finished",
		"status", briefing.OverallStatus(),
		"issues", len(briefing.Entries),
		"autoFixed", len(briefing.AutoFixed),
		"escalated", len(briefing.Escalated),
		"deferred", len(briefing.Deferred),
		"durationMs", briefing.DurationMs,
	)

	return &briefing, nil
}

func (h *Healer) lock(ctx context.Context, business string, ttl time.Duration) (runlock.ReleaseFunc, error) {
	name := business
	if name == "" {
		name = allBusinesses
	}

	release, err := h.locker.Acquire(ctx, name, ttl)
	if err == nil {
		return release, nil
	}

	if errors.Is(err, runlock.ErrRunInProgress) {
		return nil, err
	}

	// A lock backend outage must not stop the healer from running.
	h.logger.WarnContext(ctx, "Run lock unavailable, continuing without it", "error", err)

	return func(context.Context) error { return nil }, nil
}

func (h *Healer) checkInfrastructure(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	engineErr := h.client.Ping(pingCtx)
	storeErr := h.store.HealthCheck(pingCtx)

	switch {
	case engineErr != nil && storeErr != nil:
		return fmt.Errorf("%w: engine: %v; store: %v", ErrInfrastructureUnreachable, engineErr, storeErr)
	case engineErr != nil:
		h.logger.WarnContext(ctx, "Orchestration engine unreachable, detection will be partial", "error", engineErr)
	case storeErr != nil:
		h.logger.WarnContext(ctx, "Log store unreachable, detection will be partial", "error", storeErr)
	}

	return nil
}

// JobName is the job-status row the healer writes for business.
func JobName(business string) string {
	return detector.SelfService + ":" + business
}

var jobHealth = map[models.HealthStatus]models.JobHealth{
	models.HealthHealthy:  models.JobHealthHealthy,
	models.HealthDegraded: models.JobHealthStale,
	models.HealthCritical: models.JobHealthFailed,
}

// persist writes the briefing, one job-status row per business and one
// integration-log row for the run. Failures are logged, never returned: the
// briefing has already been produced.
func (h *Healer) persist(ctx context.Context, logger *slog.Logger, briefing models.MorningBriefing) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := h.store.SaveBriefing(ctx, briefing); err != nil {
		logger.ErrorContext(ctx, "Failed to save briefing", "error", err)
	}

	finished := briefing.GeneratedAt

	for _, health := range briefing.PerBusinessHealth {
		status := models.JobStatus{
			JobName:   JobName(health.Business),
			Business:  health.Business,
			Enabled:   true,
			Status:    jobHealth[health.Status],
			LastRunAt: &finished,
			UpdatedAt: finished,
		}

		if health.Status == models.HealthHealthy {
			status.LastSuccessAt = &finished
		} else {
			status.ErrorMessage = fmt.Sprintf("%d unresolved critical, %d unresolved high", health.UnresolvedCritical, health.UnresolvedHigh)
		}

		if err := h.store.UpdateJobStatus(ctx, status); err != nil {
			logger.ErrorContext(ctx, "Failed to update job status", "job", status.JobName, "error", err)
		}
	}

	logStatus, level := models.LogStatusSuccess, "info"
	if len(briefing.ResolutionErrors) > 0 || len(briefing.DetectionErrors) > 0 {
		logStatus, level = models.LogStatusError, "warn"
	}

	entry := models.IntegrationLog{
		Source:    detector.SelfService,
		Service:   detector.SelfService,
		Operation: "healing_run",
		Status:    logStatus,
		Level:     level,
		Message: fmt.Sprintf("%d issues: %d auto-fixed, %d alerted, %d escalated, %d deferred, %d failed",
			len(briefing.Entries), len(briefing.AutoFixed), len(briefing.AlertedOnly),
			len(briefing.Escalated), len(briefing.Deferred), len(briefing.ResolutionErrors)),
		Business:   briefing.BusinessFilter,
		DurationMs: briefing.DurationMs,
		Details: map[string]any{
			"run_id":           briefing.RunID,
			"overall_status":   briefing.OverallStatus(),
			"tasks_created":    len(briefing.TasksCreated),
			"detection_errors": len(briefing.DetectionErrors),
		},
		CreatedAt: finished,
	}

	if err := h.store.WriteIntegrationLog(ctx, entry); err != nil {
		logger.ErrorContext(ctx, "Failed to write integration log", "error", err)
	}
}

// publish announces new tasks, escalations and the finished briefing.
func (h *Healer) publish(ctx context.Context, logger *slog.Logger, detection models.DetectionResult, results []models.ResolutionResult, briefing models.MorningBriefing) {
	ctx = context.WithoutCancel(ctx)

	issues := make(map[string]models.DetectedIssue, len(detection.Issues))
	for _, issue := range detection.Issues {
		issues[issue.ID] = issue
	}

	send := func(key string, event eventbus.Event) {
		if err := h.bus.Publish(ctx, key, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish event", "type", event.GetType(), "key", key, "error", err)
		}
	}

	tasks := 0

	for _, result := range results {
		issue := issues[result.IssueID]

		if result.Task != nil && !result.Task.Existing {
			tasks++

			send(result.Task.WorkflowID, events.TaskCreated{
				BaseEvent: events.NewBaseEvent(h.bus.GenerateID(), events.TaskCreatedEvent, briefing.RunID, issue.Business),
				Task:      *result.Task,
			})
		}

		if result.FinalStatus == models.FinalStatusEscalated && result.Level >= models.LevelL2 {
			send(issue.WorkflowID, events.IssueEscalated{
				BaseEvent: events.NewBaseEvent(h.bus.GenerateID(), events.IssueEscalatedEvent, briefing.RunID, issue.Business),
				Issue:     issue,
				Result:    result,
			})
		}
	}

	send(briefing.RunID, events.BriefingGenerated{
		BaseEvent:     events.NewBaseEvent(h.bus.GenerateID(), events.BriefingGeneratedEvent, briefing.RunID, briefing.BusinessFilter),
		OverallStatus: briefing.OverallStatus(),
		Health:        briefing.PerBusinessHealth,
		Issues:        len(briefing.Entries),
		TasksCreated:  tasks,
		DurationMs:    briefing.DurationMs,
	})
}
