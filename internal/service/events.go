package service

import (
	"context"
	"time"

	"pharmacy-ops/internal/models"

	"github.com/google/uuid"
)

// EventPublisher receives domain events after the change they describe is persisted
type EventPublisher interface {
	PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
	PublishShiftEnded(ctx context.Context, event *models.ShiftEndedEvent) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishOrderCompleted(context.Context, *models.OrderCompletedEvent) error {
	return nil
}

func (NopPublisher) PublishStockAdjusted(context.Context, *models.StockAdjustedEvent) error {
	return nil
}

func (NopPublisher) PublishShiftEnded(context.Context, *models.ShiftEndedEvent) error {
	return nil
}

func publisherOr(p EventPublisher) EventPublisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}

func newBaseEvent(eventType string, at time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: at,
	}
}

// Clock returns the current time. Services take one so tests can pin time.
type Clock func() time.Time
