package events

import (
	"context"
	"fmt"
	"time"

	"github.com/siraya-health/navigator/internal/shared/config"
)

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	// Publish publishes an event to the bus
	Publish(ctx context.Context, event Event) error

	// Subscribe creates a subscription to events matching a pattern
	Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error

	// Close closes the event bus connection
	Close()

	// Health checks the event bus connection
	Health() error
}

// NewEventBus creates an event bus connected to EventStoreDB
func NewEventBus(ctx context.Context, cfg config.EventStoreConfig) (EventBus, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bus, err := NewBus(timeoutCtx, cfg)
	if err != nil {
		return nil, err
	}

	// Test the connection with a health check
	if err := bus.Health(); err != nil {
		bus.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	return bus, nil
}

// Ensure Bus implements EventBus
var _ EventBus = (*Bus)(nil)
