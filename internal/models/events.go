package models

import "time"

// Event types
const (
	EventTypeOrderCompleted = "ORDER_COMPLETED"
	EventTypeStockAdjusted  = "STOCK_ADJUSTED"
	EventTypeShiftEnded     = "SHIFT_ENDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCompletedEvent published when an order reaches the ledger
type OrderCompletedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	CustomerID  int64           `json:"customer_id"`
	Operator    string          `json:"operator"`
	TotalAmount string          `json:"total_amount"`
	Items       []OrderLineData `json:"items"`
}

// StockAdjustedEvent published after a catalog quantity change is persisted
type StockAdjustedEvent struct {
	BaseEvent
	ProductID   int64 `json:"product_id"`
	Delta       int   `json:"delta"`
	NewQuantity int   `json:"new_quantity"`
}

// ShiftEndedEvent published after a shift transition is persisted
type ShiftEndedEvent struct {
	BaseEvent
	ShiftType   string  `json:"shift_type"`
	NextType    string  `json:"next_type"`
	Operator    string  `json:"operator"`
	OrderIDs    []int64 `json:"order_ids"`
	TotalAmount string  `json:"total_amount"`
	ItemCount   int     `json:"item_count"`
}

// OrderLineData represents a line in events
type OrderLineData struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}
