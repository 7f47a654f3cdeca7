package service

import (
	"context"
	"fmt"
	"time"

	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/store"
	"pharmacy-ops/internal/util"

	"go.uber.org/zap"
)

// ShiftManager tracks the open Morning/Evening shift and the orders that
// belong to it. Ending a shift is the only transition.
type ShiftManager struct {
	store    *store.Store
	ledger   *Ledger
	sessions SessionStore
	events   EventPublisher
	logger   *zap.Logger
	now      Clock

	shift  models.Shift
	orders []*models.Order
}

// NewShiftManager creates a shift manager. Call LoadState and LoadMembership
// before use.
func NewShiftManager(
	st *store.Store,
	ledger *Ledger,
	sessions SessionStore,
	events EventPublisher,
	logger *zap.Logger,
) *ShiftManager {
	return &ShiftManager{
		store:    st,
		ledger:   ledger,
		sessions: sessions,
		events:   publisherOr(events),
		logger:   util.LoggerOr(logger),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for shift boundaries
func (m *ShiftManager) SetClock(now Clock) {
	m.now = now
}

// LoadState reads the shift state file. On first run it opens a Morning shift
// starting now and persists it before returning.
func (m *ShiftManager) LoadState(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "ShiftManager.LoadState")
	defer span.End()

	state, found, err := m.store.LoadShiftState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load shift state: %w", err)
	}

	if !found || state.StartTime.IsZero() {
		if !found {
			state.Type = models.ShiftMorning
		}
		state.StartTime = m.now()
		if err := m.store.SaveShiftState(ctx, state); err != nil {
			return fmt.Errorf("failed to initialize shift state: %w", err)
		}
		m.logger.Info("Shift state initialized",
			zap.String("shift", state.Type.String()),
			zap.Time("start", state.StartTime))
	}

	m.shift = models.Shift{Type: state.Type, StartTime: state.StartTime}
	m.orders = nil
	return nil
}

// LoadMembership reads the membership file of the open shift type and resolves
// each order ID against the ledger history. Unknown IDs are logged and dropped.
func (m *ShiftManager) LoadMembership(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "ShiftManager.LoadMembership")
	defer span.End()

	ids, err := m.store.LoadMembership(ctx, m.shift.Type)
	if err != nil {
		return fmt.Errorf("failed to load shift membership: %w", err)
	}

	resolvedIDs := make([]int64, 0, len(ids))
	orders := make([]*models.Order, 0, len(ids))
	for _, id := range ids {
		o, ok := m.ledger.FindCompleted(id)
		if !ok {
			m.logger.Warn("Shift references unknown order", zap.Int64("order_id", id))
			continue
		}
		resolvedIDs = append(resolvedIDs, id)
		orders = append(orders, o)
	}

	if err := m.ledger.LoadLines(ctx, orders...); err != nil {
		return err
	}

	m.shift.OrderIDs = resolvedIDs
	m.orders = orders

	m.logger.Info("Shift membership loaded",
		zap.String("shift", m.shift.Type.String()),
		zap.Int("orders", len(orders)))
	return nil
}

// Current returns a copy of the open shift
func (m *ShiftManager) Current() models.Shift {
	s := m.shift
	s.OrderIDs = append([]int64(nil), m.shift.OrderIDs...)
	return s
}

// Orders returns the member orders of the open shift
func (m *ShiftManager) Orders() []*models.Order {
	out := make([]*models.Order, len(m.orders))
	copy(out, m.orders)
	return out
}

// RecordOrder adds a completed order to the open shift and rewrites the
// membership file. Membership is unchanged if the write fails.
func (m *ShiftManager) RecordOrder(ctx context.Context, order *models.Order) error {
	ctx, span := util.StartSpan(ctx, "ShiftManager.RecordOrder")
	defer span.End()

	if m.shift.HasOrder(order.ID) {
		return nil
	}

	ids := append(append([]int64(nil), m.shift.OrderIDs...), order.ID)
	if err := m.store.SaveMembership(ctx, m.shift.Type, ids); err != nil {
		m.logger.Error("Failed to record order in shift", zap.Int64("order_id", order.ID), zap.Error(err))
		return err
	}

	m.shift.OrderIDs = ids
	m.orders = append(m.orders, order)
	return nil
}

// EndShift closes the open shift and opens its complement. The summary, the
// membership archive and the new state are written first; if any of them
// fails nothing in memory changes. Every session is revoked afterwards.
func (m *ShiftManager) EndShift(ctx context.Context, operator string) (*models.ShiftSummary, error) {
	ctx, span := util.StartSpan(ctx, "ShiftManager.EndShift")
	defer span.End()

	if operator == "" {
		operator = models.UnknownOperator
	}

	end := m.now()
	summary := models.Summarize(m.shift, m.orders, operator, end)

	if err := m.store.AppendShiftSummary(ctx, summary); err != nil {
		m.logger.Error("Shift end aborted: summary not written", zap.Error(err))
		return nil, err
	}

	archived, err := m.store.ArchiveMembership(ctx, m.shift.Type, end)
	if err != nil {
		m.logger.Error("Shift end aborted: membership not archived", zap.Error(err))
		return nil, err
	}

	next := store.ShiftState{Type: m.shift.Type.Next(), StartTime: end}
	if err := m.store.SaveShiftState(ctx, next); err != nil {
		m.logger.Error("Shift end aborted: state not written", zap.Error(err))
		// the shift stays open, so put its membership file back
		if restoreErr := m.store.SaveMembership(ctx, m.shift.Type, m.shift.OrderIDs); restoreErr != nil {
			m.logger.Error("Failed to restore shift membership",
				zap.String("archive", archived), zap.Error(restoreErr))
		}
		return nil, err
	}

	closed := m.shift.Type
	m.shift = models.Shift{Type: next.Type, StartTime: next.StartTime}
	m.orders = nil
	if err := m.LoadMembership(ctx); err != nil {
		m.logger.Error("Failed to load membership for new shift", zap.Error(err))
	}

	revoked, err := m.sessions.RevokeAll(ctx)
	if err != nil {
		m.logger.Error("Failed to revoke sessions on shift change", zap.Error(err))
	}

	util.ShiftsEndedTotal.WithLabelValues(closed.String()).Inc()
	m.logger.Info("Shift ended",
		zap.String("closed", closed.String()),
		zap.String("opened", next.Type.String()),
		zap.String("operator", operator),
		zap.String("archive", archived),
		zap.Int("orders", summary.OrderCount),
		zap.String("total", summary.TotalAmount.StringFixed(2)),
		zap.Int("sessions_revoked", revoked))

	event := &models.ShiftEndedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeShiftEnded, end),
		ShiftType:   closed.String(),
		NextType:    next.Type.String(),
		Operator:    operator,
		OrderIDs:    summary.OrderIDs,
		TotalAmount: summary.TotalAmount.StringFixed(2),
		ItemCount:   summary.ItemCount,
	}
	if err := m.events.PublishShiftEnded(ctx, event); err != nil {
		m.logger.Error("Failed to publish ShiftEnded event", zap.Error(err))
	}

	return summary, nil
}
