package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"pharmacy-ops/internal/idalloc"
	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/store"
	"pharmacy-ops/internal/util"

	"go.uber.org/zap"
)

// Ledger composes orders and keeps the history of completed ones. Pending
// orders live only in memory until Complete writes them to the order logs.
type Ledger struct {
	store   *store.Store
	ids     *idalloc.Allocator
	catalog *Catalog
	roster  *Roster
	events  EventPublisher
	logger  *zap.Logger
	now     Clock

	pending map[int64]*models.Order
	history []*models.Order
	byID    map[int64]*models.Order
}

// NewLedger creates an empty ledger. Call LoadAll to read the order logs.
func NewLedger(
	st *store.Store,
	ids *idalloc.Allocator,
	catalog *Catalog,
	roster *Roster,
	events EventPublisher,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		store:   st,
		ids:     ids,
		catalog: catalog,
		roster:  roster,
		events:  publisherOr(events),
		logger:  util.LoggerOr(logger),
		now:     time.Now,
		pending: make(map[int64]*models.Order),
		byID:    make(map[int64]*models.Order),
	}
}

// SetClock replaces the time source used for order timestamps
func (l *Ledger) SetClock(now Clock) {
	l.now = now
}

// Open starts a pending order for the customer
func (l *Ledger) Open(ctx context.Context, customer *models.Customer, operator string) (*models.Order, error) {
	_, span := util.StartSpan(ctx, "Ledger.Open")
	defer span.End()

	if customer == nil {
		return nil, models.ErrCustomerNotFound
	}
	if operator == "" {
		operator = models.UnknownOperator
	}

	order := models.NewOrder(l.ids.Next(), customer, operator, l.now())
	l.pending[order.ID] = order
	util.OrdersOpenedTotal.Inc()

	l.logger.Info("Order opened",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", customer.ID),
		zap.String("operator", operator))
	return order, nil
}

// Pending returns an open order by ID
func (l *Ledger) Pending(id int64) (*models.Order, bool) {
	o, ok := l.pending[id]
	return o, ok
}

// AddLine adds qty units of a catalog product to the order. Stock is checked
// against the live catalog row, including what the order already holds.
func (l *Ledger) AddLine(ctx context.Context, order *models.Order, productID int64, qty int) error {
	_, span := util.StartSpan(ctx, "Ledger.AddLine")
	defer span.End()

	product, ok := l.catalog.FindByID(productID)
	if !ok {
		util.OrdersFailedTotal.WithLabelValues("product_not_found").Inc()
		return fmt.Errorf("%w: %d", models.ErrProductNotFound, productID)
	}

	if err := order.AddLine(product, qty); err != nil {
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return err
	}

	l.logger.Debug("Order line added",
		zap.Int64("order_id", order.ID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", qty),
		zap.String("total", order.TotalAmount.StringFixed(2)))
	return nil
}

// RemoveLine drops a product from the order and reports whether it was there
func (l *Ledger) RemoveLine(order *models.Order, productID int64) (bool, error) {
	return order.RemoveLine(productID)
}

// Discard forgets a pending order. Its ID is not reused.
func (l *Ledger) Discard(orderID int64) bool {
	if _, ok := l.pending[orderID]; !ok {
		return false
	}
	delete(l.pending, orderID)
	util.OrdersDiscardedTotal.Inc()
	l.logger.Info("Order discarded", zap.Int64("order_id", orderID))
	return true
}

// Complete marks the order Completed and appends it to the order logs. It does
// not deduct stock. If the write fails the order is pending again under a fresh
// ID and the error is a *models.ReopenedError.
func (l *Ledger) Complete(ctx context.Context, order *models.Order) error {
	ctx, span := util.StartSpan(ctx, "Ledger.Complete")
	defer span.End()

	if err := order.Complete(); err != nil {
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return err
	}

	if err := l.store.AppendOrder(ctx, order); err != nil {
		order.Reopen()
		order.Recalculate()
		// lines may already be in the line log under this ID; a later header
		// with the same ID would commit them
		previous := order.ID
		delete(l.pending, previous)
		order.ID = l.ids.Next()
		l.pending[order.ID] = order

		util.OrdersFailedTotal.WithLabelValues("write_error").Inc()
		l.logger.Error("Failed to persist order",
			zap.Int64("order_id", previous),
			zap.Int64("reopened_as", order.ID),
			zap.Error(err))
		return &models.ReopenedError{OrderID: previous, ReopenedAs: order.ID, Err: err}
	}

	delete(l.pending, order.ID)
	l.history = append(l.history, order)
	l.byID[order.ID] = order

	util.OrdersCompletedTotal.Inc()
	util.SalesAmountTotal.Add(order.TotalAmount.InexactFloat64())
	l.logger.Info("Order completed",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.String("operator", order.Operator))

	items := make([]models.OrderLineData, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, models.OrderLineData{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price().StringFixed(2),
		})
	}
	event := &models.OrderCompletedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCompleted, l.now()),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Operator:    order.Operator,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Items:       items,
	}
	if err := l.events.PublishOrderCompleted(ctx, event); err != nil {
		l.logger.Error("Failed to publish OrderCompleted event", zap.Error(err))
	}
	return nil
}

// LoadAll replaces the history with the order header log. Customers that are
// no longer in the roster are replaced by placeholders. The order allocator is
// re-seeded from the highest ID in either order log, so IDs left behind by a
// half-written order are never handed out again.
func (l *Ledger) LoadAll(ctx context.Context) ([]*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Ledger.LoadAll")
	defer span.End()

	orders, err := l.store.LoadOrders(ctx)
	if err != nil {
		l.ids.Seed(0)
		l.logger.Error("Order log unreadable, order ids restart at 1", zap.Error(err))
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	l.history = make([]*models.Order, 0, len(orders))
	l.byID = make(map[int64]*models.Order, len(orders))
	var maxID int64
	for _, o := range orders {
		if _, dup := l.byID[o.ID]; dup {
			l.logger.Warn("Duplicate order header, keeping the first record", zap.Int64("order_id", o.ID))
			continue
		}

		customer, ok := l.roster.FindByID(o.CustomerID)
		if !ok {
			customer = models.PlaceholderCustomer(o.CustomerID, o.CustomerName)
			l.logger.Warn("Order references unknown customer, using placeholder",
				zap.Int64("order_id", o.ID),
				zap.Int64("customer_id", o.CustomerID))
		}
		o.Customer = customer

		l.history = append(l.history, o)
		l.byID[o.ID] = o
		if o.ID > maxID {
			maxID = o.ID
		}
	}

	records, err := l.store.LoadOrderLines(ctx, nil)
	if err != nil {
		l.logger.Warn("Order line log unreadable, seeding from headers only", zap.Error(err))
	}
	for _, rec := range records {
		if rec.OrderID > maxID {
			maxID = rec.OrderID
		}
	}
	l.ids.Seed(maxID)

	l.logger.Info("Orders loaded", zap.Int("count", len(l.history)), zap.Int64("max_id", maxID))
	return l.History(), nil
}

// LoadLines rebuilds the lines of the given orders from the line log. Lines
// of products no longer in the catalog get a zero-stock placeholder carrying
// the historical name and price. A repeated (order, product) record replaces
// the earlier one.
func (l *Ledger) LoadLines(ctx context.Context, orders ...*models.Order) error {
	ctx, span := util.StartSpan(ctx, "Ledger.LoadLines")
	defer span.End()

	if len(orders) == 0 {
		return nil
	}

	filter := make(map[int64]bool, len(orders))
	targets := make(map[int64]*models.Order, len(orders))
	for _, o := range orders {
		filter[o.ID] = true
		targets[o.ID] = o
		o.Lines = nil
	}

	records, err := l.store.LoadOrderLines(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load order lines: %w", err)
	}

	for _, rec := range records {
		order := targets[rec.OrderID]

		product, ok := l.catalog.FindByID(rec.ProductID)
		if !ok {
			product = &models.Product{
				ID:       rec.ProductID,
				Name:     rec.ProductName,
				Price:    rec.UnitPrice,
				Quantity: 0,
				Kind:     models.KindPlain,
			}
		}

		line := &models.OrderLine{
			Product:     product,
			Quantity:    rec.Quantity,
			ProductID:   rec.ProductID,
			ProductName: rec.ProductName,
			UnitPrice:   rec.UnitPrice,
			Sealed:      true,
		}
		if existing := order.Line(rec.ProductID); existing != nil {
			*existing = *line
			continue
		}
		order.AttachLine(line)
	}

	for _, o := range orders {
		if len(o.Lines) > 0 && !o.LinesTotal().Equal(o.TotalAmount) {
			l.logger.Warn("Order total does not match its lines",
				zap.Int64("order_id", o.ID),
				zap.String("total", o.TotalAmount.StringFixed(2)),
				zap.String("lines_total", o.LinesTotal().StringFixed(2)))
		}
	}
	return nil
}

// History returns the completed orders in log order
func (l *Ledger) History() []*models.Order {
	out := make([]*models.Order, len(l.history))
	copy(out, l.history)
	return out
}

// PendingOrders returns the open orders by ascending ID
func (l *Ledger) PendingOrders() []*models.Order {
	out := make([]*models.Order, 0, len(l.pending))
	for _, o := range l.pending {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindByID looks up a completed or pending order
func (l *Ledger) FindByID(id int64) (*models.Order, bool) {
	if o, ok := l.byID[id]; ok {
		return o, true
	}
	o, ok := l.pending[id]
	return o, ok
}

// FindCompleted looks up an order in the history only
func (l *Ledger) FindCompleted(id int64) (*models.Order, bool) {
	o, ok := l.byID[id]
	return o, ok
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, models.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, models.ErrOrderNotPending):
		return "not_pending"
	case errors.Is(err, models.ErrEmptyOrder):
		return "empty_order"
	default:
		return "other"
	}
}
