// Package resolver applies tiered remediation (L0 to L3) to detected issues
// and records every attempt in the audit log.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/backoff"
	"github.com/growthcohq/workflow-healer/pkg/config"
	"github.com/growthcohq/workflow-healer/pkg/engine"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/otelhelper"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultWriteTimeout = 10 * time.Second

// Options scope the resolution of one run.
type Options struct {
	RunID  string
	DryRun bool
}

type Resolver struct {
	logger *slog.Logger
	client engine.Client
	store  persistence.Store
	config config.Config
	tracer trace.Tracer

	now          func() time.Time
	sleep        backoff.SleepFunc
	rand         *rand.Rand
	writeTimeout time.Duration
}

func New(logger *slog.Logger, client engine.Client, store persistence.Store, cfg config.Config, tracer trace.Tracer) *Resolver {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Resolver{
		logger:       logger.With("module", "resolver"),
		client:       client,
		store:        store,
		config:       cfg,
		tracer:       tracer,
		now:          func() time.Time { return time.Now().UTC() },
		sleep:        backoff.Sleep,
		rand:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		writeTimeout: defaultWriteTimeout,
	}
}

// attempt carries the per-issue state of one Resolve call.
type attempt struct {
	issue   models.DetectedIssue
	opts    Options
	rc      config.ResolverConfig
	result  *models.ResolutionResult
	started time.Time
	seq     int
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// Level returns the level Resolve would use for issue, before any L0
// exhaustion. An open L3 task can still halt the issue at resolve time.
func (r *Resolver) Level(issue models.DetectedIssue) models.ResolutionLevel {
	rc := r.config.ForBusiness(issue.Business)
	level := AssignLevel(issue, rc)

	// Retries of retries are never retried again.
	if level == models.LevelL0 && issue.RetryOf != "" {
		return models.LevelL2
	}

	// Without anything to retry or activate, automation can only alert.
	if level == models.LevelL0 {
		if action, _ := r.correctiveAction(issue); action == nil {
			level = models.LevelL1
		}
	}

	return level
}

// Resolve produces exactly one result for issue. Failures of the issue's own
// action are isolated: they are reported as FinalStatusFailed and never
// returned as errors or panics.
func (r *Resolver) Resolve(ctx context.Context, issue models.DetectedIssue, opts Options) (result models.ResolutionResult) {
	level := r.Level(issue)

	a := &attempt{
		issue:   issue,
		opts:    opts,
		rc:      r.config.ForBusiness(issue.Business),
		result:  &result,
		started: r.now(),
	}

	result = models.ResolutionResult{
		IssueID:      issue.ID,
		Level:        level,
		InitialLevel: level,
		ActionTaken:  models.ActionNone,
	}

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "resolver.resolve",
		attribute.String(otelhelper.RunIDKey, opts.RunID),
		attribute.String(otelhelper.IssueIDKey, issue.ID),
		attribute.String(otelhelper.WorkflowIDKey, issue.WorkflowID),
		attribute.String(otelhelper.IssueTypeKey, string(issue.IssueType)),
		attribute.String(otelhelper.SeverityKey, issue.Severity.String()),
		attribute.String(otelhelper.LevelKey, level.String()),
		attribute.Bool(otelhelper.DryRunKey, opts.DryRun),
	)
	defer span.End()

	logger := r.logger.With("workflowId", issue.WorkflowID, "issueType", issue.IssueType, "level", level.String())

	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("panic while resolving: %v", recovered)
			logger.ErrorContext(ctx, "Resolution panicked", "error", err)
			otelhelper.SetError(span, err)

			result.FinalStatus = models.FinalStatusFailed
			result.Success = false
			result.Error = err.Error()
			r.audit(ctx, a, result.ActionTaken, 0, models.AuditOutcomeFailure, "resolution aborted", err)
		}

		result.DurationMs = r.now().Sub(a.started).Milliseconds()

		if result.FinalStatus == models.FinalStatusFailed && result.Error != "" {
			span.SetAttributes(attribute.String("healer.resolution.error", result.Error))
		}
	}()

	if opts.DryRun {
		result.ActionTaken = models.ActionDryRun
		result.FinalStatus = models.FinalStatusDeferred
		result.DryRun = true
		result.Details = fmt.Sprintf("dry run: would resolve at %s", level)

		return result
	}

	if err := ctx.Err(); err != nil {
		r.deferIssue(ctx, a, err)

		return result
	}

	if r.halted(ctx, a) {
		logger.InfoContext(ctx, "Resolution stopped before any action",
			"finalStatus", result.FinalStatus,
			"error", result.Error,
		)

		return result
	}

	switch level {
	case models.LevelL0:
		r.resolveL0(ctx, a)
	case models.LevelL1:
		r.resolveL1(ctx, a)
	case models.LevelL2:
		r.resolveL2(ctx, a, retryReason(issue))
	default:
		r.resolveL3(ctx, a)
	}

	logger.InfoContext(ctx, "Issue resolved",
		"finalStatus", result.FinalStatus,
		"action", result.ActionTaken,
		"attempts", result.Attempts,
		"finalLevel", result.Level.String(),
	)

	return result
}

// writeContext keeps audit and task writes alive when the run budget
// expires mid-issue.
func (r *Resolver) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
}

func (r *Resolver) audit(ctx context.Context, a *attempt, action models.Action, attemptNo int, outcome models.AuditOutcome, message string, cause error) {
	a.seq++

	entry := models.AuditEntry{
		RunID:      a.opts.RunID,
		IssueID:    a.issue.ID,
		Seq:        a.seq,
		WorkflowID: a.issue.WorkflowID,
		Business:   a.issue.Business,
		IssueType:  a.issue.IssueType,
		Severity:   a.issue.Severity,
		Level:      a.result.Level,
		Action:     action,
		Attempt:    attemptNo,
		Outcome:    outcome,
		Message:    message,
		DurationMs: r.now().Sub(a.started).Milliseconds(),
		CreatedAt:  r.now(),
	}

	if cause != nil {
		entry.Error = cause.Error()
	}

	wctx, cancel := r.writeContext(ctx)
	defer cancel()

	if err := r.store.WriteAudit(wctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "Failed to write audit entry",
			"issueId", a.issue.ID,
			"seq", entry.Seq,
			"error", err,
		)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// deferIssue leaves the issue for the next run.
func (r *Resolver) deferIssue(ctx context.Context, a *attempt, cause error) {
	a.result.FinalStatus = models.FinalStatusDeferred
	a.result.Details = "run budget exhausted before the issue was resolved"
	a.result.Error = cause.Error()

	r.audit(ctx, a, a.result.ActionTaken, a.result.Attempts, models.AuditOutcomeDeferred, a.result.Details, cause)
}

func (r *Resolver) resolveL0(ctx context.Context, a *attempt) {
	result := a.result
	issue := a.issue

	recovered, err := r.recheck(ctx, issue)
	if err != nil {
		if isCancellation(err) {
			r.deferIssue(ctx, a, err)

			return
		}

		result.FinalStatus = models.FinalStatusFailed
		result.Error = fmt.Sprintf("re-check failed: %v", err)
		r.audit(ctx, a, models.ActionNone, 0, models.AuditOutcomeFailure, "could not re-check live state", err)

		return
	}

	if recovered {
		result.Success = true
		result.FinalStatus = models.FinalStatusResolved
		result.Details = "already recovered"
		r.audit(ctx, a, models.ActionNone, 0, models.AuditOutcomeRecovered, "already recovered before any action", nil)

		return
	}

	action, name := r.correctiveAction(issue)
	result.ActionTaken = name

	if issue.IssueType == models.IssueTypeRateLimit && a.rc.RateLimitDelay > 0 {
		if err := r.sleep(ctx, a.rc.RateLimitDelay); err != nil {
			r.deferIssue(ctx, a, err)

			return
		}
	}

	policy := backoff.Policy{
		Initial:    a.rc.Backoff.Initial,
		Max:        a.rc.Backoff.Max,
		Multiplier: a.rc.Backoff.Multiplier,
		Jitter:     a.rc.Backoff.Jitter,
	}

	attempts, err := backoff.Retry(ctx, backoff.New(policy, r.rand), max(1, a.rc.MaxRetries), r.sleep, func(n int) error {
		actErr := action(ctx)
		result.Attempts = n

		if actErr != nil {
			r.audit(ctx, a, name, n, models.AuditOutcomeFailure, "corrective action failed", actErr)

			return actErr
		}

		r.audit(ctx, a, name, n, models.AuditOutcomeSuccess, "corrective action succeeded", nil)

		return nil
	})
	result.Attempts = attempts

	switch {
	case err == nil:
		result.Success = true
		result.FinalStatus = models.FinalStatusResolved
	case isCancellation(err):
		r.deferIssue(ctx, a, err)
	default:
		r.escalate(ctx, a, fmt.Sprintf("%s failed after %d attempts", name, attempts), err)
	}
}

func retryReason(issue models.DetectedIssue) string {
	if issue.RetryOf == "" {
		return ""
	}

	return fmt.Sprintf("execution %s is itself a retry of %s", issue.ExecutionID, issue.RetryOf)
}

// escalate moves an L0 issue to L2 handling.
func (r *Resolver) escalate(ctx context.Context, a *attempt, reason string, cause error) {
	a.result.Level = models.LevelL2

	if cause != nil {
		a.result.Error = cause.Error()
	}

	r.audit(ctx, a, a.result.ActionTaken, a.result.Attempts, models.AuditOutcomeEscalated, reason, cause)
	r.resolveL2(ctx, a, reason)
}

func (r *Resolver) resolveL1(ctx context.Context, a *attempt) {
	result := a.result
	result.ActionTaken = models.ActionAlert

	r.logger.WarnContext(ctx, "Workflow issue needs attention",
		"workflowId", a.issue.WorkflowID,
		"issueType", a.issue.IssueType,
		"severity", a.issue.Severity.String(),
		"message", a.issue.Message,
	)
	r.audit(ctx, a, models.ActionAlert, 0, models.AuditOutcomeAlert, a.issue.Message, nil)

	recovered, err := r.recheck(ctx, a.issue)
	if err == nil && recovered {
		result.Success = true
		result.FinalStatus = models.FinalStatusResolved
		result.Details = "corrected without intervention"
		r.audit(ctx, a, models.ActionAlert, 0, models.AuditOutcomeRecovered, result.Details, nil)

		return
	}

	if err != nil {
		r.logger.WarnContext(ctx, "Re-check failed", "workflowId", a.issue.WorkflowID, "error", err)
	}

	task, terr := r.createTask(ctx, a, models.LevelL1, models.SeverityLow)
	if terr != nil {
		result.FinalStatus = models.FinalStatusFailed
		result.Error = terr.Error()

		return
	}

	result.Task = task
	result.FinalStatus = models.FinalStatusEscalated
}

// resolveL2 never retries: it records one deduplicated task for a human.
func (r *Resolver) resolveL2(ctx context.Context, a *attempt, reason string) {
	result := a.result
	if result.ActionTaken == models.ActionNone {
		result.ActionTaken = models.ActionCreateTask
	}

	task, err := r.createTask(ctx, a, models.LevelL2, a.issue.Severity)
	if err != nil {
		result.FinalStatus = models.FinalStatusFailed
		result.Error = err.Error()

		return
	}

	result.Task = task
	result.FinalStatus = models.FinalStatusEscalated

	if reason != "" {
		result.Details = reason
	}
}

// halted reports whether an open L3 task for (workflowId, issueType) stops
// automation, whatever level the issue maps to today. It fills in the result
// when it returns true, including when the lookup itself fails.
func (r *Resolver) halted(ctx context.Context, a *attempt) bool {
	result := a.result

	rctx, cancel := r.writeContext(ctx)
	open, err := r.store.FindOpenTask(rctx, a.issue.WorkflowID, a.issue.IssueType, models.LevelL3)
	cancel()

	switch {
	case err == nil:
		result.Level = models.LevelL3
		result.ActionTaken = models.ActionHalt
		result.FinalStatus = models.FinalStatusEscalated
		result.Details = fmt.Sprintf("automation halted by open task %s", open.ID)
		result.Task = taskCreated(*open, true)
		r.audit(ctx, a, models.ActionHalt, 0, models.AuditOutcomeHalted, result.Details, nil)

		return true
	case persistence.IsTaskNotFound(err):
		return false
	default:
		result.FinalStatus = models.FinalStatusFailed
		result.Error = fmt.Sprintf("failed to look up open task: %v", err)
		r.audit(ctx, a, models.ActionNone, 0, models.AuditOutcomeFailure, "could not check for an open task", err)

		return true
	}
}

// resolveL3 opens the task that halts automation for (workflowId, issueType)
// until a human closes it. Resolve has already checked for an open one.
func (r *Resolver) resolveL3(ctx context.Context, a *attempt) {
	result := a.result
	result.ActionTaken = models.ActionHalt

	task, err := r.createTask(ctx, a, models.LevelL3, a.issue.Severity)
	if err != nil {
		result.FinalStatus = models.FinalStatusFailed
		result.Error = err.Error()

		return
	}

	result.Task = task
	result.FinalStatus = models.FinalStatusEscalated
	result.Details = "automation halted until the task is closed"
	r.audit(ctx, a, models.ActionHalt, 0, models.AuditOutcomeHalted, result.Details, nil)
}

func taskCreated(task models.Task, existing bool) *models.TaskCreated {
	return &models.TaskCreated{
		ID:         task.ID,
		Severity:   task.Severity,
		WorkflowID: task.WorkflowID,
		Business:   task.Business,
		Title:      task.Title,
		CreatedAt:  task.CreatedAt,
		IssueType:  task.IssueType,
		Level:      task.Level,
		DedupKey:   task.DedupKey,
		Existing:   existing,
	}
}

func (r *Resolver) createTask(ctx context.Context, a *attempt, level models.ResolutionLevel, severity models.Severity) (*models.TaskCreated, error) {
	task := newTask(a.issue, level, severity, r.now().Format(time.DateOnly))
	task.CreatedAt = r.now()

	wctx, cancel := r.writeContext(ctx)
	defer cancel()

	stored, created, err := r.store.UpsertTask(wctx, task)
	if err != nil {
		err = fmt.Errorf("failed to write task %s: %w", task.DedupKey, err)
		r.audit(ctx, a, models.ActionCreateTask, 0, models.AuditOutcomeFailure, "task write failed", err)

		return nil, err
	}

	message := "task created"
	if !created {
		message = "task already exists"
	}

	r.audit(ctx, a, models.ActionCreateTask, 0, models.AuditOutcomeEscalated, fmt.Sprintf("%s: %s", message, stored.Title), nil)

	return taskCreated(stored, !created), nil
}
