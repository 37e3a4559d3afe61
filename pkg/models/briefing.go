package models

import "time"

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
)

// HealthSummary is the per-business section of a briefing.
type HealthSummary struct {
	Business           string       `json:"business"`
	Status             HealthStatus `json:"status"`
	Issues             int          `json:"issues"`
	Resolved           int          `json:"resolved"`
	Escalated          int          `json:"escalated"`
	Failed             int          `json:"failed"`
	Deferred           int          `json:"deferred"`
	UnresolvedHigh     int          `json:"unresolved_high"`
	UnresolvedCritical int          `json:"unresolved_critical"`
}

// BriefingEntry joins an issue with its resolution for display.
type BriefingEntry struct {
	IssueID      string          `json:"issue_id"`
	WorkflowID   string          `json:"workflow_id"`
	WorkflowName string          `json:"workflow_name,omitempty"`
	Business     string          `json:"business"`
	IssueType    IssueType       `json:"issue_type"`
	Severity     Severity        `json:"severity"`
	Level        ResolutionLevel `json:"level"`
	FinalStatus  FinalStatus     `json:"final_status"`
	Action       Action          `json:"action"`
	Attempts     int             `json:"attempts"`
	Message      string          `json:"message"`
}

// ResolutionError is a per-issue failure surfaced in the briefing.
type ResolutionError struct {
	IssueID    string `json:"issue_id"`
	WorkflowID string `json:"workflow_id"`
	Error      string `json:"error"`
}

type LevelCount struct {
	Level ResolutionLevel `json:"level"`
	Count int             `json:"count"`
}

type SeverityCount struct {
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
}

// MorningBriefing is the auditable output of one detection and resolution run.
type MorningBriefing struct {
	RunID             string            `json:"run_id"`
	ScannedAt         time.Time         `json:"scanned_at"`
	GeneratedAt       time.Time         `json:"generated_at"`
	DryRun            bool              `json:"dry_run"`
	BusinessFilter    string            `json:"business_filter,omitempty"`
	PerBusinessHealth []HealthSummary   `json:"per_business_health"`
	Entries           []BriefingEntry   `json:"entries"`
	AutoFixed         []BriefingEntry   `json:"auto_fixed"`
	AlertedOnly       []BriefingEntry   `json:"alerted_only"`
	Escalated         []BriefingEntry   `json:"escalated"`
	Deferred          []BriefingEntry   `json:"deferred"`
	TasksCreated      []TaskCreated     `json:"tasks_created"`
	ByLevel           []LevelCount      `json:"by_level"`
	BySeverity        []SeverityCount   `json:"by_severity"`
	DetectionErrors   []SourceError     `json:"detection_errors"`
	ResolutionErrors  []ResolutionError `json:"resolution_errors"`
	Recommendations   []string          `json:"recommendations"`
	DurationMs        int64             `json:"duration_ms"`
}

// OverallStatus is the worst per-business status.
func (b *MorningBriefing) OverallStatus() HealthStatus {
	status := HealthHealthy

	for _, h := range b.PerBusinessHealth {
		switch h.Status {
		case HealthCritical:
			return HealthCritical
		case HealthDegraded:
			status = HealthDegraded
		}
	}

	return status
}
