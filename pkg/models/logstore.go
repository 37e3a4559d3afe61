package models

import "time"

// IntegrationLog is a row of the integration-log table written by
// integrations (webhooks, syncs) and by this monitor.
type IntegrationLog struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Service    string         `json:"service"`
	Operation  string         `json:"operation"`
	Status     string         `json:"status"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Business   string         `json:"business,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

const (
	LogStatusSuccess = "success"
	LogStatusError   = "error"
)

// AuditOutcome classifies one audit entry.
type AuditOutcome string

const (
	AuditOutcomeSuccess   AuditOutcome = "success"
	AuditOutcomeFailure   AuditOutcome = "failure"
	AuditOutcomeRecovered AuditOutcome = "recovered"
	AuditOutcomeEscalated AuditOutcome = "escalated"
	AuditOutcomeHalted    AuditOutcome = "halted"
	AuditOutcomeDeferred  AuditOutcome = "deferred"
	AuditOutcomeAlert     AuditOutcome = "alert"
)

// AuditEntry is persisted for every resolution attempt. (RunID, IssueID, Seq)
// is unique so a re-entered run overwrites instead of duplicating.
type AuditEntry struct {
	ID         string          `json:"id"`
	RunID      string          `json:"run_id"`
	IssueID    string          `json:"issue_id"`
	Seq        int             `json:"seq"`
	WorkflowID string          `json:"workflow_id"`
	Business   string          `json:"business"`
	IssueType  IssueType       `json:"issue_type"`
	Severity   Severity        `json:"severity"`
	Level      ResolutionLevel `json:"level"`
	Action     Action          `json:"action"`
	Attempt    int             `json:"attempt"`
	Outcome    AuditOutcome    `json:"outcome"`
	Message    string          `json:"message"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending_input"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusDismissed  TaskStatus = "dismissed"
)

func (s TaskStatus) Open() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// Task is a dashboard-task row. DedupKey is unique.
type Task struct {
	ID           string          `json:"id"`
	DedupKey     string          `json:"dedup_key"`
	WorkflowID   string          `json:"workflow_id"`
	IssueType    IssueType       `json:"issue_type"`
	Day          string          `json:"day"`
	Business     string          `json:"business"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Instructions string          `json:"instructions"`
	Severity     Severity        `json:"severity"`
	Level        ResolutionLevel `json:"level"`
	Priority     int             `json:"priority"`
	Category     string          `json:"category"`
	Status       TaskStatus      `json:"status"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type JobHealth string

const (
	JobHealthHealthy JobHealth = "healthy"
	JobHealthStale   JobHealth = "stale"
	JobHealthFailed  JobHealth = "failed"
	JobHealthUnknown JobHealth = "unknown"
)

// JobStatus is a row of the per-business job-status table. Rows for
// monitored workflows carry thresholds in; the monitor's own rows carry the
// last-run outcome out.
type JobStatus struct {
	JobName               string     `json:"job_name"`
	Business              string     `json:"business"`
	WorkflowID            string     `json:"workflow_id,omitempty"`
	Enabled               bool       `json:"enabled"`
	ExpectedIntervalHours float64    `json:"expected_interval_hours,omitempty"`
	Status                JobHealth  `json:"status"`
	LastRunAt             *time.Time `json:"last_run_at,omitempty"`
	LastSuccessAt         *time.Time `json:"last_success_at,omitempty"`
	ErrorMessage          string     `json:"error_message,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
