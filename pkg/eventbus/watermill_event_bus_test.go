package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/growthcohq/workflow-healer/pkg/channels/gochannel"
	"github.com/growthcohq/workflow-healer/pkg/eventbus"
	"github.com/growthcohq/workflow-healer/pkg/events"
	"github.com/growthcohq/workflow-healer/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.TaskCreatedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	err := bus.Publish(t.Context(), "wf-1", events.TaskCreated{
		BaseEvent: events.NewBaseEvent(bus.GenerateID(), events.TaskCreatedEvent, "run-1", "boo"),
		Task: models.TaskCreated{
			ID:         "task-1",
			WorkflowID: "wf-1",
			Severity:   models.SeverityCritical,
			Level:      models.LevelL2,
		},
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		task, ok := event.(*events.TaskCreated)
		require.True(t, ok)
		assert.Equal(t, "task-1", task.Task.ID)
		assert.Equal(t, models.SeverityCritical, task.Task.Severity)
		assert.Equal(t, "run-1", task.RunID)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.BriefingGeneratedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "wf-1", events.IssueEscalated{}))
	require.NoError(t, bus.Publish(t.Context(), "run-1", events.BriefingGenerated{
		BaseEvent:     events.NewBaseEvent(bus.GenerateID(), events.BriefingGeneratedEvent, "run-1", ""),
		OverallStatus: models.HealthDegraded,
		Issues:        3,
	}))

	select {
	case event := <-received:
		briefing, ok := event.(*events.BriefingGenerated)
		require.True(t, ok)
		assert.Equal(t, models.HealthDegraded, briefing.OverallStatus)
		assert.Equal(t, 3, briefing.Issues)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNoop(t *testing.T) {
	var bus eventbus.EventBus = eventbus.Noop{}

	assert.NoError(t, bus.Publish(t.Context(), "k", events.TaskCreated{}))
	assert.NotEmpty(t, bus.GenerateID())
	assert.NoError(t, bus.Close())
}
