// Package eventbus publishes healing-run notifications to downstream consumers
// (chat alerts, dashboards) over watermill.
package eventbus

import (
	"context"

	"github.com/growthcohq/workflow-healer/pkg/events"
)

// Event is anything published on the bus. The type selects the topic.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends events. key is the partition key, usually a workflow
// or run ID, so that events about one workflow stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber is used by consumers of healing events and by tests.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
