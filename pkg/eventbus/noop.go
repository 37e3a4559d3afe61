package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/growthcohq/workflow-healer/pkg/events"
)

// Noop discards every event. It is used when no event bus is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, Event) error { return nil }

func (Noop) Handle(events.EventType, EventHandler) error { return nil }

func (Noop) Subscribe(context.Context) error { return nil }

func (Noop) Close() error { return nil }

func (Noop) GenerateID() string { return watermill.NewULID() }

var (
	_ EventBus = Noop{}
	_ EventBus = (*WatermillEventBus)(nil)
)
