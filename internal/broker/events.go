package broker

import (
	"context"
	"fmt"

	"pharmacy-ops/internal/models"
)

// EventWriter is the transport the publisher hands encoded events to
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer EventWriter) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCompleted publishes OrderCompleted event
func (ep *EventPublisher) PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, OrderKey(event.OrderID), event)
}

// PublishStockAdjusted publishes StockAdjusted event
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	return ep.producer.PublishEvent(ctx, ProductKey(event.ProductID), event)
}

// PublishShiftEnded publishes ShiftEnded event
func (ep *EventPublisher) PublishShiftEnded(ctx context.Context, event *models.ShiftEndedEvent) error {
	return ep.producer.PublishEvent(ctx, "shift-"+event.ShiftType, event)
}

// OrderKey partitions order events by order
func OrderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// ProductKey partitions stock events by product
func ProductKey(productID int64) string {
	return fmt.Sprintf("product-%d", productID)
}
