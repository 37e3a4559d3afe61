// Package detector queries the orchestration engine and the log store for
// abnormal signals and turns them into an ordered, deduplicated issue list.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/growthcohq/workflow-healer/pkg/classifier"
	"github.com/growthcohq/workflow-healer/pkg/config"
	"github.com/growthcohq/workflow-healer/pkg/engine"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/otelhelper"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// SelfService marks integration-log rows and job-status rows written by the
// healer itself. They are never treated as signals.
const SelfService = "workflow-healer"

// signal is one raw observation before severity and deduplication.
type signal struct {
	workflowID   string
	workflowName string
	executionID  string
	retryOf      string
	business     string
	issueType    models.IssueType
	detectedAt   time.Time
	message      string
	rawError     string
	source       models.SignalSource

	hoursStale       float64
	expectedInterval float64
	inactive         bool
	neverRan         bool
}

func (s signal) key() models.IssueKey {
	return models.IssueKey{WorkflowID: s.workflowID, IssueType: s.issueType}
}

// Options scope a single detection pass.
type Options struct {
	RunID string
	// Business restricts the result to one business. Empty means all.
	Business string
}

type Detector struct {
	logger *slog.Logger
	client engine.Client
	store  persistence.Store
	config config.Config
	tracer trace.Tracer
	now    func() time.Time
}

func New(logger *slog.Logger, client engine.Client, store persistence.Store, cfg config.Config, tracer trace.Tracer) *Detector {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Detector{
		logger: logger.With("module", "detector"),
		client: client,
		store:  store,
		config: cfg,
		tracer: tracer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type sourceFunc func(ctx context.Context, inv *inventory, now time.Time) ([]signal, error)

// Detect runs every source, isolating failures per source. It never returns
// an error: unreachable sources are reported in DetectionResult.SourceErrors.
func (d *Detector) Detect(ctx context.Context, opts Options) models.DetectionResult {
	started := d.now()

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "detector.detect",
		attribute.String(otelhelper.RunIDKey, opts.RunID),
		attribute.String(otelhelper.BusinessKey, opts.Business),
	)
	defer span.End()

	result := models.DetectionResult{
		ScannedAt:    started,
		Issues:       make([]models.DetectedIssue, 0),
		SourceErrors: make([]models.SourceError, 0),
	}

	inv, err := d.loadInventory(ctx)
	if err != nil {
		d.logger.WarnContext(ctx, "Workflow inventory unavailable", "error", err)
		result.SourceErrors = append(result.SourceErrors, sourceError(models.SourceWorkflows, err, started))
	}

	result.WorkflowsScanned = len(inv.workflows)

	sources := []struct {
		name models.SignalSource
		fn   sourceFunc
	}{
		{models.SourceFailedExecutions, d.failedExecutions},
		{models.SourceJobStatus, d.jobStatus},
		{models.SourceExecutionHistory, d.executionHistory},
		{models.SourceIntegrationLogs, d.integrationLogs},
	}

	signals := make([][]signal, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.DetectionConcurrency)

	for i, source := range sources {
		result.SourcesQueried = append(result.SourcesQueried, source.name)

		g.Go(func() error {
			sctx, sspan := otelhelper.StartSpan(gctx, d.tracer, "detector.source",
				attribute.String(otelhelper.SourceKey, string(source.name)))
			defer sspan.End()

			// A source may return signals alongside an error when it only
			// partly failed.
			found, err := source.fn(sctx, inv, started)
			if err != nil {
				otelhelper.SetError(sspan, err)
				errs[i] = err
			}

			signals[i] = found

			return nil
		})
	}

	_ = g.Wait()

	all := make([]signal, 0)

	for i, source := range sources {
		if errs[i] != nil {
			d.logger.WarnContext(ctx, "Detection source failed", "source", source.name, "error", errs[i])
			result.SourceErrors = append(result.SourceErrors, sourceError(source.name, errs[i], d.now()))
		}

		all = append(all, signals[i]...)
	}

	result.SignalsSeen = len(all)

	if opts.Business != "" {
		filtered := all[:0]

		for _, s := range all {
			if s.business == opts.Business {
				filtered = append(filtered, s)
			}
		}

		all = filtered
	}

	issues, historyErr := d.buildIssues(ctx, opts.RunID, all, started)
	if historyErr != nil {
		result.SourceErrors = append(result.SourceErrors, sourceError(models.SourceAuditHistory, historyErr, d.now()))
	}

	if limit := d.config.MaxIssuesPerRun; limit > 0 && len(issues) > limit {
		result.Truncated = len(issues) - limit
		issues = issues[:limit]

		d.logger.WarnContext(ctx, "Issue list truncated", "limit", limit, "dropped", result.Truncated)
	}

	result.Issues = issues
	result.DurationMs = d.now().Sub(started).Milliseconds()

	span.SetAttributes(attribute.Int("healer.issues", len(issues)))

	d.logger.InfoContext(ctx, "Detection finished",
		"issues", len(issues),
		"signals", result.SignalsSeen,
		"sourceErrors", len(result.SourceErrors),
		"durationMs", result.DurationMs,
	)

	return result
}

func sourceError(source models.SignalSource, err error, at time.Time) models.SourceError {
	return models.SourceError{Source: source, Error: err.Error(), At: at}
}

// buildIssues counts occurrences, assigns severity, deduplicates by
// (workflowId, issueType) and orders the result. A failing history lookup
// is returned once; the in-run count is used for the affected keys.
func (d *Detector) buildIssues(ctx context.Context, runID string, signals []signal, now time.Time) ([]models.DetectedIssue, error) {
	inRun := make(map[models.IssueKey]int)
	for _, s := range signals {
		inRun[s.key()]++
	}

	occurrences := make(map[models.IssueKey]int, len(inRun))
	since := now.Add(-d.config.HistoryWindow)

	var historyErr error

	for key, count := range inRun {
		occurrences[key] = count

		prior, err := d.store.CountAuditRuns(ctx, key.WorkflowID, key.IssueType, since, runID)
		if err != nil {
			historyErr = fmt.Errorf("audit history for %s: %w", key, err)

			break
		}

		occurrences[key] += prior
	}

	// Mixing counted and uncounted keys would make severities depend on map
	// order, so a history failure falls back to in-run counts everywhere.
	if historyErr != nil {
		for key, count := range inRun {
			occurrences[key] = count
		}
	}

	day := now.Format(time.DateOnly)
	best := make(map[models.IssueKey]models.DetectedIssue)

	for _, s := range signals {
		key := s.key()
		issue := d.toIssue(s, occurrences[key], day)

		current, seen := best[key]
		if !seen || outranks(issue, current) {
			best[key] = issue
		}
	}

	issues := make([]models.DetectedIssue, 0, len(best))
	for _, issue := range best {
		issues = append(issues, issue)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity > issues[j].Severity
		}

		if !issues[i].DetectedAt.Equal(issues[j].DetectedAt) {
			return issues[i].DetectedAt.After(issues[j].DetectedAt)
		}

		return issues[i].Key().String() < issues[j].Key().String()
	})

	return issues, historyErr
}

// outranks keeps the higher severity; ties keep the most recent detection.
func outranks(candidate, current models.DetectedIssue) bool {
	if candidate.Severity != current.Severity {
		return candidate.Severity > current.Severity
	}

	return candidate.DetectedAt.After(current.DetectedAt)
}

func (d *Detector) toIssue(s signal, occurrences int, day string) models.DetectedIssue {
	rc := d.config.ForBusiness(s.business)
	thresholds := rc.Thresholds(s.workflowName, s.inactive)

	if s.expectedInterval > 0 {
		thresholds.ExpectedIntervalHours = s.expectedInterval
	}

	severity := classifier.CalculateSeverity(s.issueType, occurrences, s.hoursStale, thresholds)
	if s.neverRan && !s.inactive && severity > models.SeverityHigh {
		severity = models.SeverityHigh
	}

	return models.DetectedIssue{
		ID:                    IssueID(s.workflowID, s.issueType, day),
		WorkflowID:            s.workflowID,
		WorkflowName:          s.workflowName,
		ExecutionID:           s.executionID,
		RetryOf:               s.retryOf,
		Business:              s.business,
		IssueType:             s.issueType,
		Severity:              severity,
		DetectedAt:            s.detectedAt,
		Message:               s.message,
		RawError:              s.rawError,
		Retryable:             classifier.IsRetryable(s.issueType),
		OccurrenceCount:       occurrences,
		Source:                s.source,
		HoursStale:            s.hoursStale,
		ExpectedIntervalHours: thresholds.ExpectedIntervalHours,
		WorkflowActive:        !s.inactive,
	}
}

// IssueID is stable for a (workflowId, issueType) pair within a calendar day,
// so a re-entered run addresses the same audit rows.
func IssueID(workflowID string, issueType models.IssueType, day string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(models.TaskDedupKey(workflowID, issueType, day))).String()
}
