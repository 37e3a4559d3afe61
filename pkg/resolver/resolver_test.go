package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/config"
	"github.com/growthcohq/workflow-healer/pkg/detector"
	"github.com/growthcohq/workflow-healer/pkg/engine"
	"github.com/growthcohq/workflow-healer/pkg/log"
	"github.com/growthcohq/workflow-healer/pkg/mocks"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/growthcohq/workflow-healer/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)

type fixture struct {
	client *mocks.MockEngineClient
	store  *file.Persistence
	config config.Config
	slept  []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		client: &mocks.MockEngineClient{},
		store:  file.NewPersistence(t.TempDir()),
		config: config.Default(),
	}

	t.Cleanup(func() {
		f.client.AssertExpectations(t)
	})

	return f
}

func (f *fixture) build() *Resolver {
	r := New(log.Discard(), f.client, f.store, f.config, nil)
	r.now = func() time.Time { return testNow }
	r.sleep = func(ctx context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)

		return ctx.Err()
	}

	return r
}

func (f *fixture) audits(t *testing.T, runID string) []models.AuditEntry {
	t.Helper()

	entries, err := f.store.Audits(t.Context(), runID)
	require.NoError(t, err)

	return entries
}

func (f *fixture) tasks(t *testing.T) []models.Task {
	t.Helper()

	tasks, err := f.store.Tasks(t.Context())
	require.NoError(t, err)

	return tasks
}

func (f *fixture) notRecovered(issue models.DetectedIssue) {
	f.client.On("GetExecution", mock.Anything, issue.ExecutionID).
		Return(&models.Execution{ID: issue.ExecutionID, WorkflowID: issue.WorkflowID, Status: models.ExecutionStatusError}, nil)
	f.client.On("ListExecutions", mock.Anything, engine.ExecutionFilter{
		WorkflowID: issue.WorkflowID,
		Status:     models.ExecutionStatusSuccess,
		Since:      issue.DetectedAt,
		Limit:      1,
	}).Return([]models.Execution{}, nil)
}

func newIssue(issueType models.IssueType, severity models.Severity) models.DetectedIssue {
	return models.DetectedIssue{
		ID:           fmt.Sprintf("issue-%s-%s", issueType, severity),
		WorkflowID:   "wf-1",
		WorkflowName: "boo-order-sync",
		ExecutionID:  "e-1",
		Business:     "boo",
		IssueType:    issueType,
		Severity:     severity,
		DetectedAt:   testNow.Add(-time.Hour),
		Message:      "order sync failed",
		RawError:     "upstream said no",
		Source:       models.SourceFailedExecutions,
	}
}

func TestResolve_RateLimitRetriedOnce(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityLow)

	f.notRecovered(issue)
	f.client.On("RetryExecution", mock.Anything, "e-1").
		Return(&models.Execution{ID: "e-2", WorkflowID: "wf-1", Status: models.ExecutionStatusSuccess}, nil).Once()

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.FinalStatusResolved, result.FinalStatus)
	assert.True(t, result.Success)
	assert.Equal(t, models.LevelL0, result.Level)
	assert.Equal(t, models.ActionRetryExecution, result.ActionTaken)
	assert.Equal(t, 1, result.Attempts)
	assert.Nil(t, result.Task)
	assert.False(t, result.Escalated())

	assert.Equal(t, []time.Duration{f.config.RateLimitDelay}, f.slept, "only the rate-limit wait, no backoff")
	assert.Empty(t, f.tasks(t))

	audits := f.audits(t, "run-1")
	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditOutcomeSuccess, audits[0].Outcome)
	assert.Equal(t, 1, audits[0].Attempt)
	assert.Equal(t, issue.ID, audits[0].IssueID)
}

func TestResolve_CriticalAuthFailureCreatesOneTask(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeAuthFailure, models.SeverityCritical)

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.LevelL2, result.Level)
	assert.Equal(t, models.FinalStatusEscalated, result.FinalStatus)
	assert.Equal(t, models.ActionCreateTask, result.ActionTaken)
	assert.Zero(t, result.Attempts)
	require.NotNil(t, result.Task)
	assert.False(t, result.Task.Existing)

	f.client.AssertNotCalled(t, "RetryExecution", mock.Anything, mock.Anything)

	tasks := f.tasks(t)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Fix authentication: boo-order-sync", tasks[0].Title)
	assert.Equal(t, 1, tasks[0].Priority)
	assert.Equal(t, models.SeverityCritical, tasks[0].Severity)
	assert.Equal(t, models.TaskDedupKey("wf-1", models.IssueTypeAuthFailure, "2026-03-04"), tasks[0].DedupKey)
	assert.Equal(t, result.Task.ID, tasks[0].ID)
}

func TestResolve_L2IsIdempotentAcrossRuns(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeCredentialExpired, models.SeverityHigh)
	r := f.build()

	first := r.Resolve(t.Context(), issue, Options{RunID: "run-1"})
	second := r.Resolve(t.Context(), issue, Options{RunID: "run-2"})

	require.NotNil(t, first.Task)
	require.NotNil(t, second.Task)
	assert.False(t, first.Task.Existing)
	assert.True(t, second.Task.Existing)
	assert.Equal(t, first.Task.ID, second.Task.ID)
	assert.Equal(t, models.FinalStatusEscalated, second.FinalStatus)
	assert.Len(t, f.tasks(t), 1)
}

func TestResolve_L3HaltsWhileTaskIsOpen(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeUnknown, models.SeverityHigh)
	r := f.build()

	first := r.Resolve(t.Context(), issue, Options{RunID: "run-1"})
	assert.Equal(t, models.LevelL3, first.Level)
	assert.Equal(t, models.ActionHalt, first.ActionTaken)
	assert.Equal(t, models.FinalStatusEscalated, first.FinalStatus)
	require.NotNil(t, first.Task)
	assert.False(t, first.Task.Existing)

	// The next day the same issue is still halted by the open task.
	r.now = func() time.Time { return testNow.Add(24 * time.Hour) }

	second := r.Resolve(t.Context(), issue, Options{RunID: "run-2"})
	assert.Equal(t, models.ActionHalt, second.ActionTaken)
	require.NotNil(t, second.Task)
	assert.True(t, second.Task.Existing)
	assert.Equal(t, first.Task.ID, second.Task.ID)
	assert.Len(t, f.tasks(t), 1)

	audits := f.audits(t, "run-2")
	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditOutcomeHalted, audits[0].Outcome)

	// Once a human closes it, a new task may be raised.
	require.NoError(t, f.store.SetTaskStatus(t.Context(), first.Task.DedupKey, models.TaskStatusDone))

	third := r.Resolve(t.Context(), issue, Options{RunID: "run-3"})
	require.NotNil(t, third.Task)
	assert.False(t, third.Task.Existing)
	assert.NotEqual(t, first.Task.ID, third.Task.ID)

	tasks := f.tasks(t)
	assert.Len(t, tasks, 2)

	for _, task := range tasks {
		assert.Equal(t, 1, task.Priority)
		assert.Equal(t, models.LevelL3, task.Level)
	}
}

func TestResolve_L0ExhaustionEscalatesToL2(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeNetworkTimeout, models.SeverityLow)

	f.notRecovered(issue)
	f.client.On("RetryExecution", mock.Anything, "e-1").
		Return(nil, fmt.Errorf("retry: %w", engine.ErrUnreachable)).Times(3)

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.LevelL2, result.Level)
	assert.Equal(t, models.LevelL0, result.InitialLevel)
	assert.True(t, result.Escalated())
	assert.Equal(t, models.FinalStatusEscalated, result.FinalStatus)
	assert.Equal(t, models.ActionRetryExecution, result.ActionTaken)
	assert.Equal(t, 3, result.Attempts)
	assert.Contains(t, result.Error, "unreachable")
	require.NotNil(t, result.Task)
	assert.Equal(t, models.LevelL2, result.Task.Level)

	require.Len(t, f.slept, 2, "two backoff waits between three attempts")
	assert.LessOrEqual(t, f.slept[0], f.slept[1])

	outcomes := make([]models.AuditOutcome, 0)
	for _, entry := range f.audits(t, "run-1") {
		outcomes = append(outcomes, entry.Outcome)
	}

	assert.Equal(t, []models.AuditOutcome{
		models.AuditOutcomeFailure,
		models.AuditOutcomeFailure,
		models.AuditOutcomeFailure,
		models.AuditOutcomeEscalated,
		models.AuditOutcomeEscalated,
	}, outcomes)
}

func TestResolve_NotFoundIsNotRetried(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeNetworkTimeout, models.SeverityLow)

	f.notRecovered(issue)
	f.client.On("RetryExecution", mock.Anything, "e-1").
		Return(nil, fmt.Errorf("retry: %w", engine.ErrNotFound)).Once()

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, models.LevelL2, result.Level)
	assert.Empty(t, f.slept)
}

func TestResolve_AlreadyRecoveredTakesNoAction(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityLow)

	f.client.On("GetExecution", mock.Anything, "e-1").
		Return(&models.Execution{ID: "e-1", RetrySuccessID: "e-9"}, nil)

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.FinalStatusResolved, result.FinalStatus)
	assert.Equal(t, models.ActionNone, result.ActionTaken)
	assert.Zero(t, result.Attempts)
	f.client.AssertNotCalled(t, "RetryExecution", mock.Anything, mock.Anything)

	audits := f.audits(t, "run-1")
	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditOutcomeRecovered, audits[0].Outcome)
}

func TestResolve_ActivatesInactiveWorkflow(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeWorkflowInactive, models.SeverityHigh)
	issue.ExecutionID = ""

	f.client.On("GetWorkflow", mock.Anything, "wf-1").Return(&models.Workflow{ID: "wf-1", Active: false}, nil)
	f.client.On("ActivateWorkflow", mock.Anything, "wf-1").Return(&models.Workflow{ID: "wf-1", Active: true}, nil).Once()

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.FinalStatusResolved, result.FinalStatus)
	assert.Equal(t, models.ActionActivate, result.ActionTaken)
	assert.Equal(t, 1, result.Attempts)
}

func TestResolve_RetryOfRetryGoesToTask(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeStaleExecution, models.SeverityLow)
	issue.RetryOf = "e-0"

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.LevelL2, result.Level)
	assert.Equal(t, models.LevelL2, result.InitialLevel)
	assert.Equal(t, models.FinalStatusEscalated, result.FinalStatus)
	assert.Contains(t, result.Details, "itself a retry of e-0")
	require.NotNil(t, result.Task)
	f.client.AssertNotCalled(t, "RetryExecution", mock.Anything, mock.Anything)
}

func TestResolve_DryRunReportsRetryOfRetryAsL2(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeStaleExecution, models.SeverityLow)
	issue.RetryOf = "e-0"

	r := f.build()
	result := r.Resolve(t.Context(), issue, Options{RunID: "run-1", DryRun: true})

	assert.Equal(t, models.LevelL2, r.Level(issue))
	assert.Equal(t, models.LevelL2, result.Level)
	assert.Contains(t, result.Details, "would resolve at L2")
}

func TestResolve_OpenL3TaskHaltsLowerLevels(t *testing.T) {
	f := newFixture(t)
	r := f.build()

	first := r.Resolve(t.Context(), newIssue(models.IssueTypeUnknown, models.SeverityHigh), Options{RunID: "run-1"})
	require.Equal(t, models.LevelL3, first.Level)
	require.NotNil(t, first.Task)

	// Days later the occurrence count has dropped and the same key maps to L0,
	// but the human has not closed the task yet.
	r.now = func() time.Time { return testNow.Add(9 * 24 * time.Hour) }

	issue := newIssue(models.IssueTypeUnknown, models.SeverityMedium)
	require.Equal(t, models.LevelL0, r.Level(issue))

	second := r.Resolve(t.Context(), issue, Options{RunID: "run-2"})

	assert.Equal(t, models.LevelL0, second.InitialLevel)
	assert.Equal(t, models.LevelL3, second.Level)
	assert.Equal(t, models.ActionHalt, second.ActionTaken)
	assert.Equal(t, models.FinalStatusEscalated, second.FinalStatus)
	assert.Zero(t, second.Attempts)
	require.NotNil(t, second.Task)
	assert.True(t, second.Task.Existing)
	assert.Equal(t, first.Task.ID, second.Task.ID)

	f.client.AssertNotCalled(t, "GetExecution", mock.Anything, mock.Anything)
	f.client.AssertNotCalled(t, "RetryExecution", mock.Anything, mock.Anything)
	assert.Len(t, f.tasks(t), 1)

	audits := f.audits(t, "run-2")
	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditOutcomeHalted, audits[0].Outcome)
	assert.Equal(t, models.LevelL3, audits[0].Level)
}

func TestResolve_OpenTaskLookupFailureTakesNoAction(t *testing.T) {
	client := &mocks.MockEngineClient{}
	store := &mocks.MockStore{}
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityLow)

	store.On("FindOpenTask", mock.Anything, "wf-1", models.IssueTypeRateLimit, models.LevelL3).
		Return(nil, errors.New("connection refused"))
	store.On("WriteAudit", mock.Anything, mock.MatchedBy(func(entry models.AuditEntry) bool {
		return entry.Outcome == models.AuditOutcomeFailure
	})).Return(nil).Once()

	r := New(log.Discard(), client, store, config.Default(), nil)
	result := r.Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.FinalStatusFailed, result.FinalStatus)
	assert.Contains(t, result.Error, "failed to look up open task")
	assert.Empty(t, client.Calls)
	store.AssertExpectations(t)
}

func TestResolve_StaleWorkflowEndToEnd(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	f.client.On("ListWorkflows", mock.Anything, engine.WorkflowFilter{}).Return([]models.Workflow{}, nil)
	f.client.On("ListExecutions", mock.Anything, mock.MatchedBy(func(filter engine.ExecutionFilter) bool {
		return filter.WorkflowID == "" && filter.Status == models.ExecutionStatusError
	})).Return([]models.Execution{}, nil)

	lastSuccess := now.Add(-30 * time.Hour)
	require.NoError(t, f.store.UpdateJobStatus(t.Context(), models.JobStatus{
		JobName:               "boo-stock-sync",
		Business:              "boo",
		WorkflowID:            "wf-2",
		Enabled:               true,
		ExpectedIntervalHours: 25,
		LastSuccessAt:         &lastSuccess,
	}))

	detection := detector.New(log.Discard(), f.client, f.store, f.config, nil).Detect(t.Context(), detector.Options{RunID: "run-1"})

	require.Empty(t, detection.SourceErrors)
	require.Len(t, detection.Issues, 1)

	issue := detection.Issues[0]
	assert.Equal(t, models.IssueTypeStaleExecution, issue.IssueType)
	assert.Equal(t, models.SeverityMedium, issue.Severity, "30h against 25h is a ratio of 1.2")
	assert.Empty(t, issue.ExecutionID)

	f.client.On("ListExecutions", mock.Anything, mock.MatchedBy(func(filter engine.ExecutionFilter) bool {
		return filter.WorkflowID == "wf-2" && filter.Status == models.ExecutionStatusSuccess &&
			filter.Since.After(now.Add(-26*time.Hour)) && filter.Since.Before(now.Add(-24*time.Hour))
	})).Return([]models.Execution{}, nil).Once()
	f.client.On("DeactivateWorkflow", mock.Anything, "wf-2").Return(&models.Workflow{ID: "wf-2", Active: false}, nil).Once()
	f.client.On("ActivateWorkflow", mock.Anything, "wf-2").Return(&models.Workflow{ID: "wf-2", Active: true}, nil).Once()

	r := New(log.Discard(), f.client, f.store, f.config, nil)
	result := r.Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.LevelL0, result.Level)
	assert.Equal(t, models.ActionResetTrigger, result.ActionTaken)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, models.FinalStatusResolved, result.FinalStatus)
	assert.True(t, result.Success)
	assert.Nil(t, result.Task)
	assert.Empty(t, f.tasks(t))

	f.client.AssertNumberOfCalls(t, "DeactivateWorkflow", 1)
	f.client.AssertNumberOfCalls(t, "ActivateWorkflow", 1)
	f.client.AssertNotCalled(t, "RetryExecution", mock.Anything, mock.Anything)
}

func TestResolve_StaleWorkflowCaughtUpWithinInterval(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeStaleExecution, models.SeverityMedium)
	issue.ExecutionID = ""
	issue.Source = models.SourceJobStatus
	issue.ExpectedIntervalHours = 25

	f.client.On("ListExecutions", mock.Anything, engine.ExecutionFilter{
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusSuccess,
		Since:      testNow.Add(-25 * time.Hour),
		Limit:      1,
	}).Return([]models.Execution{{ID: "e-5", WorkflowID: "wf-1", Status: models.ExecutionStatusSuccess}}, nil).Once()

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.FinalStatusResolved, result.FinalStatus)
	assert.Equal(t, models.ActionNone, result.ActionTaken)
	assert.Zero(t, result.Attempts)
	f.client.AssertNotCalled(t, "DeactivateWorkflow", mock.Anything, mock.Anything)
	f.client.AssertNotCalled(t, "ActivateWorkflow", mock.Anything, mock.Anything)
	assert.Empty(t, f.tasks(t))
}

func TestResolve_SeededJitterIsReproducible(t *testing.T) {
	delays := func() []time.Duration {
		f := newFixture(t)
		issue := newIssue(models.IssueTypeNetworkTimeout, models.SeverityLow)

		f.notRecovered(issue)
		f.client.On("RetryExecution", mock.Anything, "e-1").
			Return(nil, fmt.Errorf("retry: %w", engine.ErrUnreachable)).Times(3)

		r := f.build()
		r.rand = rand.New(rand.NewPCG(7, 11))
		r.Resolve(t.Context(), issue, Options{RunID: "run-1"})

		return f.slept
	}

	first, second := delays(), delays()

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestResolve_L1AlertsAndRaisesLowTask(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityMedium)

	f.notRecovered(issue)

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.LevelL1, result.Level)
	assert.Equal(t, models.ActionAlert, result.ActionTaken)
	assert.Equal(t, models.FinalStatusEscalated, result.FinalStatus)
	require.NotNil(t, result.Task)
	assert.Equal(t, models.SeverityLow, result.Task.Severity)
	f.client.AssertNotCalled(t, "RetryExecution", mock.Anything, mock.Anything)
}

func TestResolve_LogOnlyIssueCannotBeRetried(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityLow)
	issue.ExecutionID = ""
	issue.Source = models.SourceIntegrationLogs

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.LevelL1, result.Level)
	assert.Equal(t, models.LevelL1, result.InitialLevel)
	assert.Equal(t, models.FinalStatusEscalated, result.FinalStatus)
}

func TestResolve_CriticalWorkflowFloor(t *testing.T) {
	f := newFixture(t)
	f.config.CriticalWorkflowNames = []string{"boo-order-*"}
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityLow)

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.LevelL2, result.Level)
	f.client.AssertNotCalled(t, "RetryExecution", mock.Anything, mock.Anything)
}

func TestResolve_DryRunWritesNothing(t *testing.T) {
	client := &mocks.MockEngineClient{}
	store := &mocks.MockStore{}

	r := New(log.Discard(), client, store, config.Default(), nil)

	for _, issue := range []models.DetectedIssue{
		newIssue(models.IssueTypeRateLimit, models.SeverityLow),
		newIssue(models.IssueTypeAuthFailure, models.SeverityCritical),
		newIssue(models.IssueTypeUnknown, models.SeverityHigh),
	} {
		result := r.Resolve(t.Context(), issue, Options{RunID: "run-1", DryRun: true})

		assert.True(t, result.DryRun)
		assert.Equal(t, models.ActionDryRun, result.ActionTaken)
		assert.Equal(t, models.FinalStatusDeferred, result.FinalStatus)
		assert.Contains(t, result.Details, result.Level.String())
	}

	client.AssertExpectations(t)
	store.AssertExpectations(t)
	assert.Empty(t, client.Calls)
	assert.Empty(t, store.Calls)
}

func TestResolve_PanicIsIsolated(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityLow)

	f.client.On("GetExecution", mock.Anything, "e-1").Panic("boom")

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.FinalStatusFailed, result.FinalStatus)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
}

func TestResolve_CancelledContextDefers(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityLow)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result := f.build().Resolve(ctx, issue, Options{RunID: "run-1"})

	assert.Equal(t, models.FinalStatusDeferred, result.FinalStatus)
	assert.True(t, errors.Is(ctx.Err(), context.Canceled))

	audits := f.audits(t, "run-1")
	require.Len(t, audits, 1, "the deferral is still audited")
	assert.Equal(t, models.AuditOutcomeDeferred, audits[0].Outcome)
}

func TestResolve_RecheckFailureFails(t *testing.T) {
	f := newFixture(t)
	issue := newIssue(models.IssueTypeRateLimit, models.SeverityLow)

	f.client.On("GetExecution", mock.Anything, "e-1").Return(nil, fmt.Errorf("get: %w", engine.ErrUnauthorized))

	result := f.build().Resolve(t.Context(), issue, Options{RunID: "run-1"})

	assert.Equal(t, models.FinalStatusFailed, result.FinalStatus)
	assert.Contains(t, result.Error, "re-check failed")
}
