package events

import (
	"encoding/json"
	"testing"

	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	tests := []struct {
		name     string
		event    interface{ GetType() EventType }
		expected EventType
	}{
		{"issue escalated", IssueEscalated{}, IssueEscalatedEvent},
		{"task created", TaskCreated{}, TaskCreatedEvent},
		{"briefing generated", BriefingGenerated{}, BriefingGeneratedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.event.GetType())
		})
	}
}

func TestIssueEscalated_JSON(t *testing.T) {
	event := IssueEscalated{
		BaseEvent: NewBaseEvent("evt-1", IssueEscalatedEvent, "run-1", "boo"),
		Issue: models.DetectedIssue{
			ID:         "issue-1",
			WorkflowID: "wf-1",
			IssueType:  models.IssueTypeAuthFailure,
			Severity:   models.SeverityCritical,
		},
		Result: models.ResolutionResult{
			IssueID:     "issue-1",
			Level:       models.LevelL2,
			FinalStatus: models.FinalStatusEscalated,
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "issue.escalated", decoded["type"])
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "critical", decoded["issue"].(map[string]any)["severity"])
	assert.Equal(t, "L2", decoded["result"].(map[string]any)["level"])
}
