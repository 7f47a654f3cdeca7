package service

import (
	"context"
	"fmt"

	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/util"

	"go.uber.org/zap"
)

// Checkout runs the sale workflow: complete the order, deduct its stock, then
// record it in the open shift. The order is durable once Complete succeeds;
// stock deduction and shift membership are follow-up steps that are reported
// but never rolled back. A crash between completion and deduction leaves the
// order sold with stock not yet deducted.
type Checkout struct {
	ledger  *Ledger
	catalog *Catalog
	shifts  *ShiftManager
	logger  *zap.Logger
}

// NewCheckout creates the checkout workflow
func NewCheckout(ledger *Ledger, catalog *Catalog, shifts *ShiftManager, logger *zap.Logger) *Checkout {
	return &Checkout{
		ledger:  ledger,
		catalog: catalog,
		shifts:  shifts,
		logger:  util.LoggerOr(logger),
	}
}

// CheckoutResult describes a completed sale
type CheckoutResult struct {
	Order *models.Order `json:"order"`
	// Problems lists follow-up steps that did not apply after the order was recorded
	Problems []string `json:"problems,omitempty"`
}

// Complete finishes a pending order
func (c *Checkout) Complete(ctx context.Context, order *models.Order) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.Complete")
	defer span.End()

	if err := c.ledger.Complete(ctx, order); err != nil {
		return nil, err
	}

	result := &CheckoutResult{Order: order}

	for _, line := range order.Lines {
		found, err := c.catalog.AdjustQuantity(ctx, line.ProductID, -line.Quantity)
		switch {
		case err != nil:
			c.logger.Error("Stock not deducted for completed order",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
			result.Problems = append(result.Problems,
				fmt.Sprintf("stock for product %d not deducted: %v", line.ProductID, err))
		case !found:
			result.Problems = append(result.Problems,
				fmt.Sprintf("product %d is no longer in the catalog", line.ProductID))
		}
	}

	if err := c.shifts.RecordOrder(ctx, order); err != nil {
		result.Problems = append(result.Problems,
			fmt.Sprintf("order not recorded in the open shift: %v", err))
	}

	return result, nil
}
