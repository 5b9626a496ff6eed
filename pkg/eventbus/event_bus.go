// Package eventbus provides the publish/subscribe layer for docflow lifecycle events.
package eventbus

import (
	"context"

	"github.com/dukex/docflow/pkg/events"
)

// Event is anything carrying an event type; every struct in pkg/events qualifies.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is the half of the bus the generator depends on. key travels as
// message metadata; runs use their execution id.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber routes decoded events to one handler per type.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the concrete event struct.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
