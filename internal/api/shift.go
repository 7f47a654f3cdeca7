package api

import (
	"context"
	"net/http"
	"time"

	"pharmacy-ops/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type shiftView struct {
	Type        models.ShiftType `json:"type"`
	StartTime   time.Time        `json:"start_time"`
	OrderIDs    []int64          `json:"order_ids"`
	OrderCount  int              `json:"order_count"`
	ItemCount   int              `json:"item_count"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
}

func (h *Handler) getShift(c *gin.Context) {
	var view shiftView
	err := h.do(c, func(ctx context.Context) error {
		shift := h.shifts.Current()
		sum := models.Summarize(shift, h.shifts.Orders(), "", time.Now())
		view = shiftView{
			Type:        shift.Type,
			StartTime:   shift.StartTime,
			OrderIDs:    shift.OrderIDs,
			OrderCount:  sum.OrderCount,
			ItemCount:   sum.ItemCount,
			TotalAmount: sum.TotalAmount,
		}
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// endShift closes the open shift. Every session, the caller's included, is
// revoked, so the operator must log in again.
func (h *Handler) endShift(c *gin.Context) {
	operator := currentSession(c).Username

	var summary *models.ShiftSummary
	err := h.do(c, func(ctx context.Context) error {
		sum, err := h.shifts.EndShift(ctx, operator)
		if err != nil {
			return err
		}
		summary = sum
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
