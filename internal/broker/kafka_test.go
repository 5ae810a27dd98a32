package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"order-assistant/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishOrderCreated(t *testing.T) {
	w := &recordingWriter{}
	publisher := NewEventPublisher(NewProducerWithWriter(w))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		OrderID:     "order-1",
		OrderNumber: "LQ3K2ZAB12",
		TenantID:    "tenant-a",
		Total:       decimal.RequireFromString("62.00"),
	}

	require.NoError(t, publisher.PublishOrderCreated(context.Background(), event))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "tenant-tenant-a", string(w.messages[0].Key))

	var decoded models.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, "order-1", decoded.OrderID)
	assert.Equal(t, models.EventTypeOrderCreated, decoded.EventType)
	assert.True(t, decoded.Total.Equal(event.Total))
}

func TestPublishEvent_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker unavailable")}
	p := NewProducerWithWriter(w)

	err := p.PublishEvent(context.Background(), "k", map[string]string{"a": "b"})
	assert.Error(t, err)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
