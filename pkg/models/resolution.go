package models

import (
	"fmt"
	"strings"
	"time"
)

// ResolutionLevel is the escalation tier, from fully automated (L0) to manual only (L3).
type ResolutionLevel int

const (
	LevelL0 ResolutionLevel = iota
	LevelL1
	LevelL2
	LevelL3
)

var ResolutionLevels = []ResolutionLevel{LevelL0, LevelL1, LevelL2, LevelL3}

func (l ResolutionLevel) String() string {
	return fmt.Sprintf("L%d", int(l))
}

func ParseResolutionLevel(value string) (ResolutionLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "L0":
		return LevelL0, nil
	case "L1":
		return LevelL1, nil
	case "L2":
		return LevelL2, nil
	case "L3":
		return LevelL3, nil
	default:
		return 0, fmt.Errorf("unknown resolution level %q", value)
	}
}

func (l ResolutionLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *ResolutionLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseResolutionLevel(string(text))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}

// FinalStatus is the terminal outcome of resolving one issue in one run.
type FinalStatus string

const (
	FinalStatusResolved  FinalStatus = "resolved"
	FinalStatusEscalated FinalStatus = "escalated"
	FinalStatusFailed    FinalStatus = "failed"
	FinalStatusDeferred  FinalStatus = "deferred"
)

// Action names the corrective action a resolution performed or would perform.
type Action string

const (
	ActionNone           Action = "none"
	ActionRetryExecution Action = "retry_execution"
	ActionActivate       Action = "activate_workflow"
	ActionResetTrigger   Action = "reset_trigger"
	ActionAlert          Action = "alert"
	ActionCreateTask     Action = "create_task"
	ActionHalt           Action = "halt"
	ActionDryRun         Action = "dry_run"
)

// ResolutionResult records what happened to one DetectedIssue in one run.
type ResolutionResult struct {
	IssueID     string          `json:"issue_id"`
	Level       ResolutionLevel `json:"level"`
	ActionTaken Action          `json:"action_taken"`
	Success     bool            `json:"success"`
	Attempts    int             `json:"attempts"`
	DurationMs  int64           `json:"duration_ms"`
	FinalStatus FinalStatus     `json:"final_status"`

	// InitialLevel differs from Level when an L0 attempt was exhausted and escalated.
	InitialLevel ResolutionLevel `json:"initial_level"`
	Details      string          `json:"details,omitempty"`
	Error        string          `json:"error,omitempty"`
	Task         *TaskCreated    `json:"task,omitempty"`
	DryRun       bool            `json:"dry_run,omitempty"`
}

func (r ResolutionResult) Escalated() bool {
	return r.Level != r.InitialLevel
}

// TaskCreated is a dashboard task raised for a human.
type TaskCreated struct {
	ID         string          `json:"id"`
	Severity   Severity        `json:"severity"`
	WorkflowID string          `json:"workflow_id"`
	Business   string          `json:"business"`
	Title      string          `json:"title"`
	CreatedAt  time.Time       `json:"created_at"`
	IssueType  IssueType       `json:"issue_type"`
	Level      ResolutionLevel `json:"level"`
	DedupKey   string          `json:"dedup_key"`

	// Existing is true when the dedup key matched a task written by an earlier run.
	Existing bool `json:"existing,omitempty"`
}

// TaskDedupKey is the (workflowId, issueType, calendarDay) key that keeps
// retried runs from creating duplicate tasks.
func TaskDedupKey(workflowID string, issueType IssueType, day string) string {
	return workflowID + "|" + string(issueType) + "|" + day
}
