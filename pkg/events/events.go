// Package events defines the notifications published after a healing run.
package events

import (
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

type EventType string

const Topic = "workflow-healer.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	IssueEscalatedEvent    EventType = "issue.escalated"
	TaskCreatedEvent       EventType = "task.created"
	BriefingGeneratedEvent EventType = "briefing.generated"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Business  string         `json:"business,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps an event of the given type with the current time.
func NewBaseEvent(id string, eventType EventType, runID, business string) BaseEvent {
	return BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Business:  business,
	}
}

// IssueEscalated is published when an issue ends a run at L2 or L3.
type IssueEscalated struct {
	BaseEvent

	Issue  models.DetectedIssue    `json:"issue"`
	Result models.ResolutionResult `json:"result"`
}

func (e IssueEscalated) GetType() EventType {
	return IssueEscalatedEvent
}

// TaskCreated is published for dashboard tasks written by this run only.
type TaskCreated struct {
	BaseEvent

	Task models.TaskCreated `json:"task"`
}

func (e TaskCreated) GetType() EventType {
	return TaskCreatedEvent
}

type BriefingGenerated struct {
	BaseEvent

	OverallStatus models.HealthStatus    `json:"overall_status"`
	Health        []models.HealthSummary `json:"health"`
	Issues        int                    `json:"issues"`
	TasksCreated  int                    `json:"tasks_created"`
	DurationMs    int64                  `json:"duration_ms"`
}

func (e BriefingGenerated) GetType() EventType {
	return BriefingGeneratedEvent
}
