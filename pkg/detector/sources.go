package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/classifier"
	"github.com/growthcohq/workflow-healer/pkg/engine"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"golang.org/x/sync/errgroup"
)

const (
	failedExecutionsLimit = 250
	historyLimit          = 50
)

type inventory struct {
	workflows []models.Workflow
	byID      map[string]models.Workflow
}

func (d *Detector) loadInventory(ctx context.Context) (*inventory, error) {
	inv := &inventory{byID: make(map[string]models.Workflow)}

	workflows, err := d.client.ListWorkflows(ctx, engine.WorkflowFilter{})
	if err != nil {
		return inv, err
	}

	inv.workflows = workflows
	for _, wf := range workflows {
		inv.byID[wf.ID] = wf
	}

	return inv, nil
}

func (d *Detector) business(name string, tags []string) string {
	return d.config.BusinessRules.Detect(name, tags)
}

func isFailure(status models.ExecutionStatus) bool {
	return status == models.ExecutionStatusError || status == models.ExecutionStatusCrashed
}

// failedExecutions reports every errored execution in the lookback window
// that has not already been retried successfully.
func (d *Detector) failedExecutions(ctx context.Context, inv *inventory, now time.Time) ([]signal, error) {
	executions, err := d.client.ListExecutions(ctx, engine.ExecutionFilter{
		Status:      models.ExecutionStatusError,
		Since:       now.Add(-d.config.Lookback),
		Limit:       failedExecutionsLimit,
		IncludeData: true,
	})
	if err != nil {
		return nil, err
	}

	signals := make([]signal, 0, len(executions))

	for _, execution := range executions {
		if execution.RetrySuccessID != "" {
			continue
		}

		wf, known := inv.byID[execution.WorkflowID]

		name := execution.WorkflowName
		if name == "" {
			name = wf.Name
		}

		message := execution.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("execution %s failed without an error message", execution.ID)
		}

		signals = append(signals, signal{
			workflowID:   execution.WorkflowID,
			workflowName: name,
			executionID:  execution.ID,
			retryOf:      execution.RetryOf,
			business:     d.business(name, wf.Tags),
			issueType:    classifier.ClassifyError(execution.ErrorMessage),
			detectedAt:   execution.FinishedAt(),
			message:      message,
			rawError:     execution.ErrorMessage,
			source:       models.SourceFailedExecutions,
			inactive:     known && !wf.Active,
		})
	}

	return signals, nil
}

// jobStatus checks the per-business job table: enabled jobs whose workflow
// is switched off, and jobs whose last recorded success is overdue.
func (d *Detector) jobStatus(ctx context.Context, inv *inventory, now time.Time) ([]signal, error) {
	rows, err := d.store.JobStatuses(ctx)
	if err != nil {
		return nil, err
	}

	signals := make([]signal, 0)

	for _, row := range rows {
		if !row.Enabled || row.WorkflowID == "" || strings.HasPrefix(row.JobName, SelfService) {
			continue
		}

		wf, known := inv.byID[row.WorkflowID]

		name := wf.Name
		if name == "" {
			name = row.JobName
		}

		business := row.Business
		if business == "" {
			business = d.business(name, wf.Tags)
		}

		inactive := known && !wf.Active

		if inactive {
			signals = append(signals, signal{
				workflowID:   row.WorkflowID,
				workflowName: name,
				business:     business,
				issueType:    models.IssueTypeWorkflowInactive,
				detectedAt:   now,
				message:      fmt.Sprintf("job %s is enabled but workflow %q is inactive", row.JobName, name),
				source:       models.SourceJobStatus,
				inactive:     true,
			})
		}

		if row.LastSuccessAt == nil {
			continue
		}

		expected := row.ExpectedIntervalHours
		if expected <= 0 {
			expected = d.config.ForBusiness(business).ExpectedInterval(name)
		}

		hours := now.Sub(*row.LastSuccessAt).Hours()
		if !classifier.IsStale(hours, expected) {
			continue
		}

		signals = append(signals, signal{
			workflowID:       row.WorkflowID,
			workflowName:     name,
			business:         business,
			issueType:        models.IssueTypeStaleExecution,
			detectedAt:       now,
			message:          fmt.Sprintf("job %s last succeeded %.1fh ago, expected every %.1fh", row.JobName, hours, expected),
			source:           models.SourceJobStatus,
			hoursStale:       hours,
			expectedInterval: expected,
			inactive:         inactive,
		})
	}

	return signals, nil
}

// executionHistory inspects every workflow that should be running: active
// ones and inactive ones named as critical. One workflow's failed lookup is
// reported in the returned error without dropping the other workflows'
// signals.
func (d *Detector) executionHistory(ctx context.Context, inv *inventory, now time.Time) ([]signal, error) {
	results := make([][]signal, len(inv.workflows))
	failures := make([]error, len(inv.workflows))
	inspected := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.DetectionConcurrency)

	for i, wf := range inv.workflows {
		business := d.business(wf.Name, wf.Tags)
		rc := d.config.ForBusiness(business)

		if !wf.Active {
			if rc.IsCritical(wf.ID, wf.Name) {
				results[i] = []signal{{
					workflowID:   wf.ID,
					workflowName: wf.Name,
					business:     business,
					issueType:    models.IssueTypeWorkflowInactive,
					detectedAt:   now,
					message:      fmt.Sprintf("critical workflow %q is inactive", wf.Name),
					source:       models.SourceExecutionHistory,
					inactive:     true,
				}}
			}

			continue
		}

		inspected++

		g.Go(func() error {
			found, err := d.workflowHistory(gctx, wf, business, rc.ExpectedInterval(wf.Name), now)
			if err != nil {
				failures[i] = fmt.Errorf("workflow %s: %w", wf.ID, err)

				return nil
			}

			results[i] = found

			return nil
		})
	}

	_ = g.Wait()

	signals := make([]signal, 0)
	for _, found := range results {
		signals = append(signals, found...)
	}

	return signals, partialHistoryError(failures, inspected)
}

// partialHistoryError folds per-workflow lookup failures into one error, or
// nil when every lookup succeeded.
func partialHistoryError(failures []error, inspected int) error {
	messages := make([]string, 0)

	for _, err := range failures {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}

	if len(messages) == 0 {
		return nil
	}

	return fmt.Errorf("%d of %d workflows could not be inspected: %s", len(messages), inspected, strings.Join(messages, "; "))
}

func (d *Detector) workflowHistory(ctx context.Context, wf models.Workflow, business string, expected float64, now time.Time) ([]signal, error) {
	executions, err := d.client.ListExecutions(ctx, engine.ExecutionFilter{
		WorkflowID:  wf.ID,
		Limit:       historyLimit,
		IncludeData: true,
	})
	if err != nil {
		return nil, err
	}

	base := signal{
		workflowID:   wf.ID,
		workflowName: wf.Name,
		business:     business,
		source:       models.SourceExecutionHistory,
	}

	signals := make([]signal, 0, 2)

	var lastSuccess, newestFailure *models.Execution

	for i := range executions {
		execution := &executions[i]

		if execution.Status == models.ExecutionStatusSuccess {
			lastSuccess = execution

			break
		}

		if newestFailure == nil && isFailure(execution.Status) {
			newestFailure = execution
		}
	}

	stale := base
	stale.issueType = models.IssueTypeStaleExecution
	stale.detectedAt = now
	stale.expectedInterval = expected

	if newestFailure != nil {
		stale.executionID = newestFailure.ID
		stale.retryOf = newestFailure.RetryOf
	}

	switch {
	case lastSuccess != nil:
		stale.hoursStale = now.Sub(lastSuccess.FinishedAt()).Hours()
		stale.message = fmt.Sprintf("last successful execution %.1fh ago, expected every %.1fh", stale.hoursStale, expected)
	case len(executions) > 0:
		oldest := executions[len(executions)-1]
		stale.hoursStale = now.Sub(oldest.StartedAt).Hours()
		stale.message = fmt.Sprintf("no successful execution in the last %d runs (%.1fh)", len(executions), stale.hoursStale)
	default:
		since := wf.UpdatedAt
		if wf.CreatedAt.After(since) {
			since = wf.CreatedAt
		}

		// Only workflows expected at least daily are flagged when they have
		// never run; weekly jobs may legitimately not have fired yet.
		if since.IsZero() || expected > classifier.DefaultExpectedIntervalHours {
			break
		}

		stale.hoursStale = now.Sub(since).Hours()
		stale.neverRan = true
		stale.message = fmt.Sprintf("workflow has never executed since it was last updated %.1fh ago", stale.hoursStale)
	}

	if stale.message != "" && classifier.IsStale(stale.hoursStale, expected) {
		signals = append(signals, stale)
	}

	if rate, ok := d.errorRate(base, executions, now); ok {
		signals = append(signals, rate)
	}

	return signals, nil
}

// errorRate flags a workflow whose recent executions fail at or above the
// configured threshold. The signal is classified from the newest error.
func (d *Detector) errorRate(base signal, executions []models.Execution, now time.Time) (signal, bool) {
	since := now.Add(-d.config.Lookback)

	var (
		total, failed int
		newest        *models.Execution
	)

	for i := range executions {
		execution := &executions[i]
		if execution.StartedAt.Before(since) {
			continue
		}

		total++

		if isFailure(execution.Status) {
			failed++

			if newest == nil {
				newest = execution
			}
		}
	}

	if total < d.config.ErrorRate.MinSamples || newest == nil {
		return signal{}, false
	}

	rate := float64(failed) / float64(total)
	if rate < d.config.ErrorRate.Threshold {
		return signal{}, false
	}

	base.executionID = newest.ID
	base.retryOf = newest.RetryOf
	base.issueType = classifier.ClassifyError(newest.ErrorMessage)
	base.detectedAt = newest.FinishedAt()
	base.message = fmt.Sprintf("error rate %.0f%% over %d executions: %s", rate*100, total, newest.ErrorMessage)
	base.rawError = newest.ErrorMessage

	return base, true
}

type logGroup struct {
	workflowID string
	service    string
	business   string
	total      int
	errors     int
	webhook    bool
	latest     *models.IntegrationLog
}

// integrationLogs groups the rolling window of integration-log rows by
// workflow (or by service when no workflow is recorded) and flags webhook
// failures and elevated error rates.
func (d *Detector) integrationLogs(ctx context.Context, inv *inventory, now time.Time) ([]signal, error) {
	rows, err := d.store.RecentIntegrationLogs(ctx, now.Add(-d.config.Lookback))
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*logGroup)

	for i := range rows {
		row := &rows[i]
		if row.Service == SelfService || row.Source == SelfService {
			continue
		}

		key := row.WorkflowID
		if key == "" {
			key = "service:" + row.Service
		}

		group, ok := groups[key]
		if !ok {
			group = &logGroup{workflowID: key, service: row.Service, business: row.Business}
			groups[key] = group
		}

		group.total++

		if row.Status != models.LogStatusError {
			continue
		}

		group.errors++

		if strings.Contains(strings.ToLower(row.Service+" "+row.Operation), "webhook") {
			group.webhook = true
		}

		if group.latest == nil || row.CreatedAt.After(group.latest.CreatedAt) {
			group.latest = row
		}
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	signals := make([]signal, 0)

	for _, key := range keys {
		group := groups[key]
		if group.latest == nil {
			continue
		}

		rate := float64(group.errors) / float64(group.total)
		elevated := group.total >= d.config.ErrorRate.MinSamples && rate >= d.config.ErrorRate.Threshold

		if !group.webhook && !elevated {
			continue
		}

		name := group.service
		var tags []string

		if wf, ok := inv.byID[group.workflowID]; ok {
			name = wf.Name
			tags = wf.Tags
		}

		business := group.business
		if business == "" {
			business = d.business(name, tags)
		}

		message := group.latest.Message
		if elevated {
			message = fmt.Sprintf("%s: %d of %d calls failed (%.0f%%): %s", group.service, group.errors, group.total, rate*100, group.latest.Message)
		}

		signals = append(signals, signal{
			workflowID:   group.workflowID,
			workflowName: name,
			business:     business,
			issueType:    classifier.ClassifyError(group.latest.Message),
			detectedAt:   group.latest.CreatedAt,
			message:      message,
			rawError:     group.latest.Message,
			source:       models.SourceIntegrationLogs,
		})
	}

	return signals, nil
}
