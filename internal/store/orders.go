package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pharmacy-ops/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LineRecord is one row of the order line log
type LineRecord struct {
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// AppendOrder writes a completed order to the ledger. Line records go first and
// the header last: a header is only present once all of its lines are, and
// lines without a header are never attached on load.
func (s *Store) AppendOrder(ctx context.Context, order *models.Order) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	lines := make([]string, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, encodeLine(order.ID, l))
	}

	if err := s.appendLines(s.files.OrderLinesFile, lines); err != nil {
		return fmt.Errorf("failed to save order lines: %w", err)
	}
	if err := s.appendLines(s.files.OrdersFile, []string{encodeHeader(order)}); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// LoadOrders reads the order header log. Customers are not resolved here.
func (s *Store) LoadOrders(ctx context.Context) ([]*models.Order, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	lines, err := s.readLines(s.files.OrdersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	orders := make([]*models.Order, 0, len(lines))
	for i, line := range lines {
		o, err := decodeHeader(line)
		if err != nil {
			s.skip(s.files.OrdersFile, i+1, line, err)
			continue
		}
		orders = append(orders, o)
	}

	s.logger.Debug("Orders loaded", zap.Int("count", len(orders)))
	return orders, nil
}

// LoadOrderLines reads the line log. When filter is non-nil only lines of the
// listed orders are returned.
func (s *Store) LoadOrderLines(ctx context.Context, filter map[int64]bool) ([]LineRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	lines, err := s.readLines(s.files.OrderLinesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}

	var records []LineRecord
	for i, line := range lines {
		rec, err := decodeLine(line)
		if err != nil {
			s.skip(s.files.OrderLinesFile, i+1, line, err)
			continue
		}
		if filter != nil && !filter[rec.OrderID] {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func encodeHeader(o *models.Order) string {
	operator := o.Operator
	if operator == "" {
		operator = models.UnknownOperator
	}
	return strings.Join([]string{
		strconv.FormatInt(o.ID, 10),
		strconv.FormatInt(o.CustomerID, 10),
		o.CustomerName,
		FormatTime(o.Timestamp),
		string(o.Status),
		o.TotalAmount.StringFixed(2),
		operator,
	}, ",")
}

func decodeHeader(line string) (*models.Order, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 || len(parts) > 7 {
		return nil, fmt.Errorf("expected 6 or 7 fields, got %d", len(parts))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid order id %q", parts[0])
	}
	customerID, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id %q", parts[1])
	}
	ts, err := ParseTime(parts[3])
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q", parts[3])
	}

	status := models.OrderStatus(strings.TrimSpace(parts[4]))
	if status != models.OrderStatusCompleted && status != models.OrderStatusPending {
		return nil, fmt.Errorf("invalid status %q", parts[4])
	}

	total, err := decimal.NewFromString(strings.TrimSpace(parts[5]))
	if err != nil {
		return nil, fmt.Errorf("invalid total %q", parts[5])
	}

	operator := models.UnknownOperator
	if len(parts) == 7 && strings.TrimSpace(parts[6]) != "" {
		operator = strings.TrimSpace(parts[6])
	}

	return &models.Order{
		ID:           id,
		CustomerID:   customerID,
		CustomerName: strings.TrimSpace(parts[2]),
		Timestamp:    ts,
		Status:       status,
		TotalAmount:  total,
		Operator:     operator,
	}, nil
}

func encodeLine(orderID int64, l *models.OrderLine) string {
	return strings.Join([]string{
		strconv.FormatInt(orderID, 10),
		strconv.FormatInt(l.ProductID, 10),
		l.Name(),
		strconv.Itoa(l.Quantity),
		l.Price().StringFixed(2),
		l.Subtotal().StringFixed(2),
	}, ",")
}

func decodeLine(line string) (LineRecord, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 6 {
		return LineRecord{}, fmt.Errorf("expected 6 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	orderID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return LineRecord{}, fmt.Errorf("invalid order id %q", parts[0])
	}
	productID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return LineRecord{}, fmt.Errorf("invalid product id %q", parts[1])
	}
	qty, err := strconv.Atoi(parts[3])
	if err != nil || qty <= 0 {
		return LineRecord{}, fmt.Errorf("invalid quantity %q", parts[3])
	}
	price, err := decimal.NewFromString(parts[4])
	if err != nil {
		return LineRecord{}, fmt.Errorf("invalid unit price %q", parts[4])
	}
	subtotal, err := decimal.NewFromString(parts[5])
	if err != nil {
		return LineRecord{}, fmt.Errorf("invalid subtotal %q", parts[5])
	}

	return LineRecord{
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: parts[2],
		Quantity:    qty,
		UnitPrice:   price,
		Subtotal:    subtotal,
	}, nil
}
