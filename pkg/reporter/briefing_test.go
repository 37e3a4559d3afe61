package reporter

import (
	"testing"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	started  = time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	finished = started.Add(90 * time.Second)
)

func issue(id, business string, issueType models.IssueType, severity models.Severity) models.DetectedIssue {
	return models.DetectedIssue{
		ID:           id,
		WorkflowID:   "wf-" + id,
		WorkflowName: business + "-" + id,
		Business:     business,
		IssueType:    issueType,
		Severity:     severity,
		DetectedAt:   started,
		Message:      "something broke",
	}
}

func meta() RunMeta {
	return RunMeta{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: finished,
		Businesses: []string{"boo", "elevate", "rhf", "teelixir"},
	}
}

func TestGenerateBriefing_Buckets(t *testing.T) {
	detection := models.DetectionResult{
		ScannedAt: started,
		Issues: []models.DetectedIssue{
			issue("1", "boo", models.IssueTypeAuthFailure, models.SeverityCritical),
			issue("2", "boo", models.IssueTypeRateLimit, models.SeverityLow),
			issue("3", "teelixir", models.IssueTypeNetworkTimeout, models.SeverityHigh),
			issue("4", "rhf", models.IssueTypeUnknown, models.SeverityMedium),
			issue("5", "rhf", models.IssueTypeStaleExecution, models.SeverityHigh),
		},
	}

	task := &models.TaskCreated{ID: "t-1", WorkflowID: "wf-1", Severity: models.SeverityCritical, Level: models.LevelL2, Title: "Fix authentication: boo-1"}

	results := []models.ResolutionResult{
		{IssueID: "1", Level: models.LevelL2, InitialLevel: models.LevelL2, FinalStatus: models.FinalStatusEscalated, ActionTaken: models.ActionCreateTask, Task: task},
		{IssueID: "2", Level: models.LevelL0, InitialLevel: models.LevelL0, FinalStatus: models.FinalStatusResolved, ActionTaken: models.ActionRetryExecution, Attempts: 1, Success: true},
		{IssueID: "3", Level: models.LevelL1, InitialLevel: models.LevelL1, FinalStatus: models.FinalStatusEscalated, ActionTaken: models.ActionAlert},
		{IssueID: "4", Level: models.LevelL0, InitialLevel: models.LevelL0, FinalStatus: models.FinalStatusFailed, Error: "re-check failed: boom"},
		{IssueID: "5", Level: models.LevelL0, InitialLevel: models.LevelL0, FinalStatus: models.FinalStatusDeferred},
	}

	b := GenerateBriefing(detection, results, meta())

	assert.Len(t, b.Entries, 5)
	assert.Len(t, b.AutoFixed, 1)
	assert.Len(t, b.AlertedOnly, 1)
	assert.Len(t, b.Escalated, 1)
	assert.Len(t, b.Deferred, 1)
	require.Len(t, b.ResolutionErrors, 1)
	assert.Equal(t, "wf-4", b.ResolutionErrors[0].WorkflowID)
	require.Len(t, b.TasksCreated, 1)
	assert.Equal(t, "t-1", b.TasksCreated[0].ID)
	assert.Equal(t, int64(90000), b.DurationMs)

	assert.Equal(t, []models.LevelCount{
		{Level: models.LevelL0, Count: 3},
		{Level: models.LevelL1, Count: 1},
		{Level: models.LevelL2, Count: 1},
		{Level: models.LevelL3, Count: 0},
	}, b.ByLevel)

	assert.Equal(t, []models.SeverityCount{
		{Severity: models.SeverityCritical, Count: 1},
		{Severity: models.SeverityHigh, Count: 2},
		{Severity: models.SeverityMedium, Count: 1},
		{Severity: models.SeverityLow, Count: 1},
	}, b.BySeverity)

	statuses := make(map[string]models.HealthStatus)
	for _, h := range b.PerBusinessHealth {
		statuses[h.Business] = h.Status
	}

	assert.Equal(t, map[string]models.HealthStatus{
		"boo":      models.HealthCritical,
		"elevate":  models.HealthHealthy,
		"rhf":      models.HealthDegraded,
		"teelixir": models.HealthDegraded,
	}, statuses)
	assert.Equal(t, models.HealthCritical, b.OverallStatus())

	assert.Contains(t, b.Recommendations, "Refresh credentials for: boo-1.")
}

func TestGenerateBriefing_ResolvedHighIsHealthy(t *testing.T) {
	detection := models.DetectionResult{Issues: []models.DetectedIssue{
		issue("1", "boo", models.IssueTypeWorkflowInactive, models.SeverityCritical),
	}}
	results := []models.ResolutionResult{
		{IssueID: "1", Level: models.LevelL0, FinalStatus: models.FinalStatusResolved, ActionTaken: models.ActionActivate, Success: true},
	}

	b := GenerateBriefing(detection, results, meta())

	assert.Equal(t, models.HealthHealthy, b.OverallStatus())
	assert.Len(t, b.AutoFixed, 1)
	assert.Equal(t, []string{"No action needed."}, b.Recommendations)
}

func TestGenerateBriefing_EachIssueCountedOnce(t *testing.T) {
	for _, level := range models.ResolutionLevels {
		for _, severity := range models.Severities {
			detection := models.DetectionResult{Issues: []models.DetectedIssue{
				issue("1", "boo", models.IssueTypeUnknown, severity),
			}}
			results := []models.ResolutionResult{
				{IssueID: "1", Level: level, FinalStatus: models.FinalStatusEscalated},
			}

			b := GenerateBriefing(detection, results, meta())

			levelTotal, severityTotal := 0, 0

			for _, lc := range b.ByLevel {
				levelTotal += lc.Count
				if lc.Level == level {
					assert.Equal(t, 1, lc.Count)
				}
			}

			for _, sc := range b.BySeverity {
				severityTotal += sc.Count
				if sc.Severity == severity {
					assert.Equal(t, 1, sc.Count)
				}
			}

			assert.Equal(t, 1, levelTotal)
			assert.Equal(t, 1, severityTotal)
			assert.Equal(t, 1, len(b.AutoFixed)+len(b.AlertedOnly)+len(b.Escalated)+len(b.Deferred))
		}
	}
}

func TestGenerateBriefing_BusinessFilter(t *testing.T) {
	m := meta()
	m.Business = "teelixir"

	b := GenerateBriefing(models.DetectionResult{}, nil, m)

	require.Len(t, b.PerBusinessHealth, 1)
	assert.Equal(t, "teelixir", b.PerBusinessHealth[0].Business)
	assert.Equal(t, "teelixir", b.BusinessFilter)
}

func TestGenerateBriefing_MissingResultIsDeferred(t *testing.T) {
	detection := models.DetectionResult{Issues: []models.DetectedIssue{
		issue("1", "boo", models.IssueTypeRateLimit, models.SeverityLow),
	}}

	b := GenerateBriefing(detection, nil, meta())

	assert.Len(t, b.Deferred, 1)
	require.Len(t, b.ResolutionErrors, 1)
	assert.Equal(t, "no resolution recorded", b.ResolutionErrors[0].Error)
}

func TestGenerateBriefing_DetectionErrorsAndTruncation(t *testing.T) {
	detection := models.DetectionResult{
		SourceErrors: []models.SourceError{{Source: models.SourceIntegrationLogs, Error: "connection refused"}},
		Truncated:    3,
	}

	b := GenerateBriefing(detection, nil, meta())

	require.Len(t, b.DetectionErrors, 1)
	assert.Contains(t, b.Recommendations, "Detection was partial (integration_logs failed); some issues may be missing.")
	assert.Contains(t, b.Recommendations, "3 lower-priority issue(s) were dropped by maxIssuesPerRun.")
}

func TestGenerateBriefing_DryRunKeepsWouldBeLevels(t *testing.T) {
	detection := models.DetectionResult{Issues: []models.DetectedIssue{
		issue("1", "boo", models.IssueTypeRateLimit, models.SeverityLow),
		issue("2", "boo", models.IssueTypeRateLimit, models.SeverityHigh),
		issue("3", "boo", models.IssueTypeAuthFailure, models.SeverityCritical),
		issue("4", "boo", models.IssueTypeUnknown, models.SeverityHigh),
		issue("5", "rhf", models.IssueTypeStaleExecution, models.SeverityMedium),
	}}

	levels := []models.ResolutionLevel{models.LevelL0, models.LevelL1, models.LevelL2, models.LevelL3, models.LevelL0}
	results := make([]models.ResolutionResult, 0, len(levels))

	for i, level := range levels {
		results = append(results, models.ResolutionResult{
			IssueID:      detection.Issues[i].ID,
			Level:        level,
			InitialLevel: level,
			ActionTaken:  models.ActionDryRun,
			FinalStatus:  models.FinalStatusDeferred,
			DryRun:       true,
		})
	}

	m := meta()
	m.DryRun = true

	b := GenerateBriefing(detection, results, m)

	require.Len(t, b.Entries, 5)
	assert.Len(t, b.Deferred, 5)

	for i, entry := range b.Entries {
		assert.Equal(t, levels[i], entry.Level)
	}

	assert.Equal(t, "Dry run: no retries, reactivations or task writes were performed.", b.Recommendations[0])
}
