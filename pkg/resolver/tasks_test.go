package resolver

import (
	"testing"

	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestTaskTitle(t *testing.T) {
	issue := models.DetectedIssue{WorkflowID: "wf-1", WorkflowName: "teelixir-stock-sync", IssueType: models.IssueTypeCredentialExpired}
	assert.Equal(t, "Refresh credentials: teelixir-stock-sync", TaskTitle(issue))

	issue.WorkflowName = ""
	assert.Equal(t, "Refresh credentials: wf-1", TaskTitle(issue))

	issue.IssueType = models.IssueType("NEW_KIND")
	assert.Equal(t, "Investigate unknown failure: wf-1", TaskTitle(issue))
}

func TestTaskInstructions(t *testing.T) {
	issue := models.DetectedIssue{
		WorkflowID:   "wf-1",
		WorkflowName: "boo-webhook",
		ExecutionID:  "e-7",
		IssueType:    models.IssueTypeHMACSignatureMismatch,
		RawError:     "signature mismatch",
	}

	instructions := TaskInstructions(issue)

	assert.Contains(t, instructions, "1. Compare the webhook secret")
	assert.Contains(t, instructions, "Workflow: boo-webhook (wf-1)")
	assert.Contains(t, instructions, "Execution: e-7")
	assert.Contains(t, instructions, "Error: signature mismatch")
}

func TestTaskPriority(t *testing.T) {
	assert.Equal(t, 1, taskPriority(models.LevelL3, models.SeverityLow))
	assert.Equal(t, 1, taskPriority(models.LevelL2, models.SeverityCritical))
	assert.Equal(t, 2, taskPriority(models.LevelL2, models.SeverityHigh))
	assert.Equal(t, 3, taskPriority(models.LevelL2, models.SeverityMedium))
	assert.Equal(t, 4, taskPriority(models.LevelL1, models.SeverityLow))
}

func TestNewTask(t *testing.T) {
	issue := models.DetectedIssue{
		WorkflowID: "wf-1",
		Business:   "rhf",
		IssueType:  models.IssueTypeAuthFailure,
		Message:    "401 from provider",
	}

	task := newTask(issue, models.LevelL2, models.SeverityHigh, "2026-03-04")

	assert.Equal(t, "wf-1|AUTH_FAILURE|2026-03-04", task.DedupKey)
	assert.Equal(t, "rhf", task.Business)
	assert.Equal(t, "401 from provider", task.Description)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, "automation", task.Category)
	assert.Equal(t, "workflow-healer", task.CreatedBy)
	assert.Equal(t, 2, task.Priority)
}
