package models

import (
	"errors"
	"fmt"
)

// Business-rule failures. Callers match them with errors.Is.
var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrEmptyField         = errors.New("required field is empty")
	ErrInvalidField       = errors.New("invalid field value")
	ErrNegativePrice      = errors.New("price cannot be negative")
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrEmptyOrder         = errors.New("order has no lines")
	ErrProductNotFound    = errors.New("product not found")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
)

// StockError reports a request that exceeds the live stock of a product
type StockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (id %d): available=%d, requested=%d",
		e.Name, e.ProductID, e.Available, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientStock) hold for stock errors
func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsBusinessError reports whether err is a rejected request rather than an I/O failure
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrInsufficientStock, ErrInvalidQuantity, ErrEmptyField, ErrInvalidField,
		ErrNegativePrice, ErrOrderNotPending, ErrEmptyOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ReopenedError reports an order whose completion could not be written. The
// order is pending again under a new ID because its lines may already be in
// the line log under the old one.
type ReopenedError struct {
	OrderID    int64
	ReopenedAs int64
	Err        error
}

func (e *ReopenedError) Error() string {
	return fmt.Sprintf("order %d not completed, reopened as order %d: %v", e.OrderID, e.ReopenedAs, e.Err)
}

func (e *ReopenedError) Unwrap() error {
	return e.Err
}
