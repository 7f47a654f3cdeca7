package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
)

// UnknownOperator is recorded when an order header carries no operator
const UnknownOperator = "Unknown"

// OrderLine is one product within an order. While the order is open the line
// prices through the live Product; once sealed it carries the historical name
// and unit price instead.
type OrderLine struct {
	Product  *Product `json:"-"`
	Quantity int      `json:"quantity"`

	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Sealed      bool            `json:"sealed"`
}

// Price returns the unit price the line is charged at
func (l *OrderLine) Price() decimal.Decimal {
	if l.Sealed || l.Product == nil {
		return l.UnitPrice
	}
	return l.Product.Price
}

// Name returns the product name the line is shown with
func (l *OrderLine) Name() string {
	if l.Sealed || l.Product == nil {
		return l.ProductName
	}
	return l.Product.Name
}

// Subtotal is quantity times unit price
func (l *OrderLine) Subtotal() decimal.Decimal {
	return l.Price().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Seal freezes the product name and price into the line
func (l *OrderLine) Seal() {
	if l.Product != nil {
		l.ProductID = l.Product.ID
		l.ProductName = l.Product.Name
		l.UnitPrice = l.Product.Price
	}
	l.Sealed = true
}

// Order is a sale composed of lines
type Order struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Timestamp    time.Time       `json:"timestamp"`
	Status       OrderStatus     `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Operator     string          `json:"operator"`
	Lines        []*OrderLine    `json:"lines"`

	Customer *Customer `json:"-"`
}

// NewOrder creates a pending order for the customer
func NewOrder(id int64, customer *Customer, operator string, at time.Time) *Order {
	return &Order{
		ID:           id,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Customer:     customer,
		Timestamp:    at,
		Status:       OrderStatusPending,
		TotalAmount:  decimal.Zero,
		Operator:     operator,
	}
}

// IsPending reports whether the order can still be edited
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// Line returns the line for a product, if any
func (o *Order) Line(productID int64) *OrderLine {
	for _, l := range o.Lines {
		if l.ProductID == productID {
			return l
		}
	}
	return nil
}

// AddLine adds qty units of product, merging into an existing line. The
// cumulative quantity on the line is checked against the product's current
// stock.
func (o *Order) AddLine(product *Product, qty int) error {
	if !o.IsPending() {
		return fmt.Errorf("%w: order %d is %s", ErrOrderNotPending, o.ID, o.Status)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidQuantity, qty)
	}

	existing := o.Line(product.ID)
	requested := qty
	if existing != nil {
		requested += existing.Quantity
	}

	if !product.IsAvailable(requested) {
		return &StockError{
			ProductID: product.ID,
			Name:      product.Name,
			Available: product.Quantity,
			Requested: requested,
		}
	}

	if existing != nil {
		existing.Quantity = requested
		existing.Product = product
	} else {
		o.Lines = append(o.Lines, &OrderLine{
			Product:   product,
			ProductID: product.ID,
			Quantity:  qty,
		})
	}

	o.Recalculate()
	return nil
}

// RemoveLine drops the line for a product and reports whether one existed
func (o *Order) RemoveLine(productID int64) (bool, error) {
	if !o.IsPending() {
		return false, fmt.Errorf("%w: order %d is %s", ErrOrderNotPending, o.ID, o.Status)
	}
	for i, l := range o.Lines {
		if l.ProductID == productID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			o.Recalculate()
			return true, nil
		}
	}
	return false, nil
}

// AttachLine appends a historical line without stock checks
func (o *Order) AttachLine(line *OrderLine) {
	o.Lines = append(o.Lines, line)
}

// Recalculate sets TotalAmount to the sum of the line subtotals
func (o *Order) Recalculate() decimal.Decimal {
	o.TotalAmount = o.LinesTotal()
	return o.TotalAmount
}

// LinesTotal sums the current line subtotals without touching TotalAmount
func (o *Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount is the number of units across all lines
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Complete moves a pending order to Completed and seals its lines
func (o *Order) Complete() error {
	if !o.IsPending() {
		return fmt.Errorf("%w: order %d is %s", ErrOrderNotPending, o.ID, o.Status)
	}
	if len(o.Lines) == 0 {
		return fmt.Errorf("%w: order %d", ErrEmptyOrder, o.ID)
	}

	for _, l := range o.Lines {
		l.Seal()
	}
	o.Recalculate()
	o.Status = OrderStatusCompleted
	return nil
}

// Reopen reverts a completion that could not be persisted
func (o *Order) Reopen() {
	o.Status = OrderStatusPending
	for _, l := range o.Lines {
		l.Sealed = false
	}
}
