package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ShiftType names a work period
type ShiftType string

// Shift types
const (
	ShiftMorning ShiftType = "Morning"
	ShiftEvening ShiftType = "Evening"
)

// ParseShiftType maps a persisted value to a shift type
func ParseShiftType(s string) (ShiftType, error) {
	switch ShiftType(s) {
	case ShiftMorning, ShiftEvening:
		return ShiftType(s), nil
	}
	return "", fmt.Errorf("unknown shift type %q", s)
}

// Next returns the shift that follows this one
func (t ShiftType) Next() ShiftType {
	if t == ShiftMorning {
		return ShiftEvening
	}
	return ShiftMorning
}

func (t ShiftType) String() string {
	return string(t)
}

// Shift is the currently open work period
type Shift struct {
	Type      ShiftType `json:"type"`
	StartTime time.Time `json:"start_time"`
	OrderIDs  []int64   `json:"order_ids"`
}

// HasOrder reports whether the order belongs to the shift
func (s *Shift) HasOrder(orderID int64) bool {
	for _, id := range s.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

// ShiftSummary is the end-of-shift report
type ShiftSummary struct {
	Type        ShiftType       `json:"type"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Operator    string          `json:"operator"`
	OrderIDs    []int64         `json:"order_ids"`
	OrderCount  int             `json:"order_count"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	NextType    ShiftType       `json:"next_type"`
}

// Summarize builds the report for a shift and its member orders
func Summarize(shift Shift, orders []*Order, operator string, end time.Time) *ShiftSummary {
	sum := &ShiftSummary{
		Type:        shift.Type,
		StartTime:   shift.StartTime,
		EndTime:     end,
		Operator:    operator,
		OrderIDs:    append([]int64(nil), shift.OrderIDs...),
		OrderCount:  len(orders),
		TotalAmount: decimal.Zero,
		NextType:    shift.Type.Next(),
	}
	for _, o := range orders {
		sum.ItemCount += o.ItemCount()
		sum.TotalAmount = sum.TotalAmount.Add(o.TotalAmount)
	}
	return sum
}
