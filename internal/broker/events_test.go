package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pharmacy-ops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	key   string
	event interface{}
}

type recordingWriter struct {
	events []recordedEvent
}

func (w *recordingWriter) PublishEvent(_ context.Context, key string, event interface{}) error {
	w.events = append(w.events, recordedEvent{key: key, event: event})
	return nil
}

func TestEventPublisherKeys(t *testing.T) {
	w := &recordingWriter{}
	ep := NewEventPublisher(w)
	ctx := context.Background()

	require.NoError(t, ep.PublishOrderCompleted(ctx, &models.OrderCompletedEvent{OrderID: 7}))
	require.NoError(t, ep.PublishStockAdjusted(ctx, &models.StockAdjustedEvent{ProductID: 3}))
	require.NoError(t, ep.PublishShiftEnded(ctx, &models.ShiftEndedEvent{ShiftType: "Morning"}))

	require.Len(t, w.events, 3)
	assert.Equal(t, "order-7", w.events[0].key)
	assert.Equal(t, "product-3", w.events[1].key)
	assert.Equal(t, "shift-Morning", w.events[2].key)
}

func TestEncodeMessage(t *testing.T) {
	event := &models.OrderCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderCompleted,
			Timestamp: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		},
		OrderID:     7,
		TotalAmount: "31.00",
		Items:       []models.OrderLineData{{ProductID: 1, Quantity: 2, UnitPrice: "15.50"}},
	}

	msg, err := encodeMessage(OrderKey(7), event)
	require.NoError(t, err)
	assert.Equal(t, []byte("order-7"), msg.Key)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, models.EventTypeOrderCompleted, decoded["event_type"])
	assert.Equal(t, "31.00", decoded["total_amount"])
	assert.EqualValues(t, 7, decoded["order_id"])
}

func TestEncodeMessageRejectsUnencodable(t *testing.T) {
	_, err := encodeMessage("k", map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}
