package resolver

import (
	"fmt"
	"strings"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

const (
	taskCategory = "automation"
	taskCreator  = "workflow-healer"
)

type taskTemplate struct {
	title string
	steps []string
}

var taskTemplates = map[models.IssueType]taskTemplate{
	models.IssueTypeCredentialExpired: {
		title: "Refresh credentials",
		steps: []string{
			"Open the workflow's credentials on the orchestration engine.",
			"Reconnect or re-authorise the expired credential.",
			"Run the workflow once manually and confirm it succeeds.",
		},
	},
	models.IssueTypeHMACSignatureMismatch: {
		title: "Fix HMAC signature",
		steps: []string{
			"Compare the webhook secret configured on the provider with the one used by the workflow.",
			"Rotate the secret on both sides if they differ.",
			"Replay a recent webhook and confirm the signature validates.",
		},
	},
	models.IssueTypeAuthFailure: {
		title: "Fix authentication",
		steps: []string{
			"Check that the API key or token used by the workflow is still valid.",
			"Confirm the account still has the permissions the workflow needs.",
			"Update the credential and re-run the failed execution.",
		},
	},
	models.IssueTypeRateLimit: {
		title: "Investigate rate limiting",
		steps: []string{
			"Check the provider's rate-limit headers or dashboard for the current quota.",
			"Reduce batch sizes or add waits between requests in the workflow.",
		},
	},
	models.IssueTypeNetworkTimeout: {
		title: "Investigate connectivity",
		steps: []string{
			"Check the provider's status page for outages.",
			"Raise the request timeout or add retries in the workflow if the provider is slow.",
		},
	},
	models.IssueTypeWorkflowInactive: {
		title: "Reactivate workflow",
		steps: []string{
			"Find out why the workflow was deactivated.",
			"Fix the underlying problem and activate the workflow.",
		},
	},
	models.IssueTypeStaleExecution: {
		title: "Investigate stale workflow",
		steps: []string{
			"Check the workflow's trigger and schedule.",
			"Look at the most recent executions for errors.",
			"Run the workflow manually once the trigger is fixed.",
		},
	},
	models.IssueTypeUnknown: {
		title: "Investigate unknown failure",
		steps: []string{
			"Read the raw error on the most recent failed execution.",
			"Automation is halted for this workflow and issue type until this task is marked done or dismissed.",
		},
	},
}

func workflowLabel(issue models.DetectedIssue) string {
	if issue.WorkflowName != "" {
		return issue.WorkflowName
	}

	return issue.WorkflowID
}

// TaskTitle is the dashboard headline for an issue.
func TaskTitle(issue models.DetectedIssue) string {
	tmpl, ok := taskTemplates[issue.IssueType]
	if !ok {
		tmpl = taskTemplates[models.IssueTypeUnknown]
	}

	return fmt.Sprintf("%s: %s", tmpl.title, workflowLabel(issue))
}

// TaskInstructions renders numbered remediation steps plus the issue context.
func TaskInstructions(issue models.DetectedIssue) string {
	tmpl, ok := taskTemplates[issue.IssueType]
	if !ok {
		tmpl = taskTemplates[models.IssueTypeUnknown]
	}

	var b strings.Builder

	for i, step := range tmpl.steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	fmt.Fprintf(&b, "\nWorkflow: %s (%s)\n", workflowLabel(issue), issue.WorkflowID)

	if issue.ExecutionID != "" {
		fmt.Fprintf(&b, "Execution: %s\n", issue.ExecutionID)
	}

	if issue.RawError != "" {
		fmt.Fprintf(&b, "Error: %s\n", issue.RawError)
	}

	return b.String()
}

// taskPriority is 1 (most urgent) to 4.
func taskPriority(level models.ResolutionLevel, severity models.Severity) int {
	if level == models.LevelL3 {
		return 1
	}

	switch severity {
	case models.SeverityCritical:
		return 1
	case models.SeverityHigh:
		return 2
	case models.SeverityMedium:
		return 3
	default:
		return 4
	}
}

func newTask(issue models.DetectedIssue, level models.ResolutionLevel, severity models.Severity, day string) models.Task {
	return models.Task{
		DedupKey:     models.TaskDedupKey(issue.WorkflowID, issue.IssueType, day),
		WorkflowID:   issue.WorkflowID,
		IssueType:    issue.IssueType,
		Day:          day,
		Business:     issue.Business,
		Title:        TaskTitle(issue),
		Description:  issue.Message,
		Instructions: TaskInstructions(issue),
		Severity:     severity,
		Level:        level,
		Priority:     taskPriority(level, severity),
		Category:     taskCategory,
		Status:       models.TaskStatusPending,
		CreatedBy:    taskCreator,
	}
}
