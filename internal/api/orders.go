package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pharmacy-ops/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderView is the JSON shape of an order with its priced lines
type OrderView struct {
	ID           int64              `json:"id"`
	CustomerID   int64              `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	Timestamp    time.Time          `json:"timestamp"`
	Status       models.OrderStatus `json:"status"`
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	Operator     string             `json:"operator"`
	ItemCount    int                `json:"item_count"`
	Lines        []LineView         `json:"lines"`
}

// LineView is one priced order line
type LineView struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func newOrderView(o *models.Order) OrderView {
	v := OrderView{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		Timestamp:    o.Timestamp,
		Status:       o.Status,
		TotalAmount:  o.TotalAmount,
		Operator:     o.Operator,
		ItemCount:    o.ItemCount(),
		Lines:        make([]LineView, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		v.Lines = append(v.Lines, LineView{
			ProductID:   l.ProductID,
			ProductName: l.Name(),
			Quantity:    l.Quantity,
			UnitPrice:   l.Price(),
			Subtotal:    l.Subtotal(),
		})
	}
	return v
}

func newOrderViews(orders []*models.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderView(o))
	}
	return out
}

// pendingOrder resolves an order that can still be edited
func (h *Handler) pendingOrder(id int64) (*models.Order, error) {
	if o, ok := h.ledger.Pending(id); ok {
		return o, nil
	}
	if o, ok := h.ledger.FindCompleted(id); ok {
		return nil, fmt.Errorf("%w: order %d is %s", models.ErrOrderNotPending, id, o.Status)
	}
	return nil, fmt.Errorf("%w: %d", models.ErrOrderNotFound, id)
}

// listOrders returns completed orders; ?scope=shift limits to the open shift and
// ?scope=pending lists open orders.
func (h *Handler) listOrders(c *gin.Context) {
	scope := c.DefaultQuery("scope", "all")

	var orders []OrderView
	err := h.do(c, func(ctx context.Context) error {
		switch scope {
		case "all":
			orders = newOrderViews(h.ledger.History())
		case "shift":
			orders = newOrderViews(h.shifts.Orders())
		case "pending":
			orders = newOrderViews(h.ledger.PendingOrders())
		default:
			return fmt.Errorf("%w: unknown scope %q", models.ErrInvalidField, scope)
		}
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

type openOrderRequest struct {
	CustomerID int64 `json:"customer_id" binding:"required"`
}

func (h *Handler) openOrder(c *gin.Context) {
	var req openOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	operator := currentSession(c).Username

	var view OrderView
	err := h.do(c, func(ctx context.Context) error {
		customer, ok := h.roster.FindByID(req.CustomerID)
		if !ok {
			return fmt.Errorf("%w: %d", models.ErrCustomerNotFound, req.CustomerID)
		}
		order, err := h.ledger.Open(ctx, customer, operator)
		if err != nil {
			return err
		}
		view = newOrderView(order)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var view OrderView
	err := h.do(c, func(ctx context.Context) error {
		order, found := h.ledger.FindByID(id)
		if !found {
			return fmt.Errorf("%w: %d", models.ErrOrderNotFound, id)
		}
		if !order.IsPending() && len(order.Lines) == 0 {
			if err := h.ledger.LoadLines(ctx, order); err != nil {
				return err
			}
		}
		view = newOrderView(order)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) discardOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	err := h.do(c, func(ctx context.Context) error {
		if _, err := h.pendingOrder(id); err != nil {
			return err
		}
		h.ledger.Discard(id)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type addLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) addLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req addLineRequest
	if !bindJSON(c, &req) {
		return
	}

	var view OrderView
	err := h.do(c, func(ctx context.Context) error {
		order, err := h.pendingOrder(id)
		if err != nil {
			return err
		}
		if err := h.ledger.AddLine(ctx, order, req.ProductID, req.Quantity); err != nil {
			return err
		}
		view = newOrderView(order)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) removeLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}

	var view OrderView
	err := h.do(c, func(ctx context.Context) error {
		order, err := h.pendingOrder(id)
		if err != nil {
			return err
		}
		removed, err := h.ledger.RemoveLine(order, productID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: %d is not on order %d", models.ErrProductNotFound, productID, id)
		}
		view = newOrderView(order)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) completeOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var (
		view     OrderView
		problems []string
	)
	err := h.do(c, func(ctx context.Context) error {
		order, err := h.pendingOrder(id)
		if err != nil {
			return err
		}
		result, err := h.checkout.Complete(ctx, order)
		if err != nil {
			return err
		}
		view = newOrderView(result.Order)
		problems = result.Problems
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": view, "problems": problems})
}
