package models

import "time"

// SourceError records a detection source that failed to respond. Detection of
// the other sources continues.
type SourceError struct {
	Source SignalSource `json:"source"`
	Error  string       `json:"error"`
	At     time.Time    `json:"at"`
}

// DetectionResult is the output of one detection pass.
type DetectionResult struct {
	ScannedAt        time.Time       `json:"scanned_at"`
	Issues           []DetectedIssue `json:"issues"`
	SourceErrors     []SourceError   `json:"source_errors"`
	SourcesQueried   []SignalSource  `json:"sources_queried"`
	WorkflowsScanned int             `json:"workflows_scanned"`
	SignalsSeen      int             `json:"signals_seen"`
	Truncated        int             `json:"truncated"`
	DurationMs       int64           `json:"duration_ms"`
}

// Workflow is the orchestration engine's view of a workflow.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusError   ExecutionStatus = "error"
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusWaiting ExecutionStatus = "waiting"
	ExecutionStatusCrashed ExecutionStatus = "crashed"
)

// Execution is one run of a workflow on the orchestration engine.
type Execution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	WorkflowName   string          `json:"workflow_name,omitempty"`
	Status         ExecutionStatus `json:"status"`
	Mode           string          `json:"mode,omitempty"`
	RetryOf        string          `json:"retry_of,omitempty"`
	RetrySuccessID string          `json:"retry_success_id,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	StoppedAt      *time.Time      `json:"stopped_at,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// FinishedAt returns StoppedAt when known, StartedAt otherwise.
func (e Execution) FinishedAt() time.Time {
	if e.StoppedAt != nil && !e.StoppedAt.IsZero() {
		return *e.StoppedAt
	}

	return e.StartedAt
}
