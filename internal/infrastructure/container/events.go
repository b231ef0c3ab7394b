package container

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/shared"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// EventBus logs every domain event and fans it out to subscribers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []outbound.EventPublisher
	log         *zap.Logger
}

var _ outbound.EventPublisher = (*EventBus)(nil)

// NewEventBus creates an event bus with no subscribers.
func NewEventBus(log *zap.Logger) *EventBus {
	return &EventBus{log: log.Named("events")}
}

// Subscribe adds a subscriber for all later events.
func (b *EventBus) Subscribe(sub outbound.EventPublisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

func (b *EventBus) Publish(ctx context.Context, events ...shared.DomainEvent) {
	for _, e := range events {
		b.log.Info("Domain event",
			zap.String("event", e.EventName()),
			zap.Time("occurred_at", e.OccurredAt()),
		)
	}

	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.Publish(ctx, events...)
	}
}
