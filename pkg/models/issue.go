// Package models defines the domain types shared by detection, resolution and reporting.
package models

import (
	"fmt"
	"strings"
	"time"
)

// IssueType is the closed taxonomy of workflow abnormalities.
type IssueType string

const (
	IssueTypeRateLimit             IssueType = "RATE_LIMIT"
	IssueTypeNetworkTimeout        IssueType = "NETWORK_TIMEOUT"
	IssueTypeAuthFailure           IssueType = "AUTH_FAILURE"
	IssueTypeCredentialExpired     IssueType = "CREDENTIAL_EXPIRED"
	IssueTypeHMACSignatureMismatch IssueType = "HMAC_SIGNATURE_MISMATCH"
	IssueTypeWorkflowInactive      IssueType = "WORKFLOW_INACTIVE"
	IssueTypeStaleExecution        IssueType = "STALE_EXECUTION"
	IssueTypeUnknown               IssueType = "UNKNOWN"
)

// IssueTypes lists every issue type in taxonomy order.
var IssueTypes = []IssueType{
	IssueTypeRateLimit,
	IssueTypeNetworkTimeout,
	IssueTypeAuthFailure,
	IssueTypeCredentialExpired,
	IssueTypeHMACSignatureMismatch,
	IssueTypeWorkflowInactive,
	IssueTypeStaleExecution,
	IssueTypeUnknown,
}

func (t IssueType) Valid() bool {
	for _, known := range IssueTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Severity is totally ordered: low < medium < high < critical.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func ParseSeverity(value string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", value)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	// Unset severities round-trip as "unknown".
	if len(text) == 0 || string(text) == "unknown" {
		*s = 0

		return nil
	}

	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if a > b {
		return a
	}

	return b
}

// SignalSource names the detection source that produced an issue.
type SignalSource string

const (
	SourceFailedExecutions SignalSource = "failed_executions"
	SourceJobStatus        SignalSource = "job_status"
	SourceExecutionHistory SignalSource = "execution_history"
	SourceIntegrationLogs  SignalSource = "integration_logs"
	SourceAuditHistory     SignalSource = "audit_history"
	SourceWorkflows        SignalSource = "workflows"
)

// IssueKey identifies an issue within a run for deduplication.
type IssueKey struct {
	WorkflowID string
	IssueType  IssueType
}

func (k IssueKey) String() string {
	return k.WorkflowID + "|" + string(k.IssueType)
}

// DetectedIssue is an abnormal condition tied to one workflow or execution.
// Once emitted by the detector it is treated as immutable.
type DetectedIssue struct {
	ID              string       `json:"id"`
	WorkflowID      string       `json:"workflow_id"`
	WorkflowName    string       `json:"workflow_name,omitempty"`
	ExecutionID     string       `json:"execution_id,omitempty"`
	RetryOf         string       `json:"retry_of,omitempty"`
	Business        string       `json:"business"`
	IssueType       IssueType    `json:"issue_type"`
	Severity        Severity     `json:"severity"`
	DetectedAt      time.Time    `json:"detected_at"`
	Message         string       `json:"message"`
	RawError        string       `json:"raw_error,omitempty"`
	Retryable       bool         `json:"retryable"`
	OccurrenceCount int          `json:"occurrence_count"`
	Source          SignalSource `json:"source"`

	// Staleness inputs, set for STALE_EXECUTION issues.
	HoursStale            float64 `json:"hours_stale,omitempty"`
	ExpectedIntervalHours float64 `json:"expected_interval_hours,omitempty"`
	WorkflowActive        bool    `json:"workflow_active"`
}

func (i DetectedIssue) Key() IssueKey {
	return IssueKey{WorkflowID: i.WorkflowID, IssueType: i.IssueType}
}
