package broker

import (
	"context"
	"fmt"

	"order-assistant/internal/models"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes OrderCreated event keyed by tenant, so one
// establishment's orders stay ordered
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("tenant-%s", event.TenantID)
	return ep.producer.PublishEvent(ctx, key, event)
}
