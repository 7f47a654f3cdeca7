package api

import (
	"context"
	"fmt"
	"net/http"

	"pharmacy-ops/internal/models"

	"github.com/gin-gonic/gin"
)

type createCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *Handler) listCustomers(c *gin.Context) {
	var customers []models.Customer
	err := h.do(c, func(ctx context.Context) error {
		for _, cu := range h.roster.List() {
			customers = append(customers, *cu)
		}
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers, "count": len(customers)})
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	var created models.Customer
	err := h.do(c, func(ctx context.Context) error {
		cu, err := h.roster.Create(ctx, req.Name, req.Phone)
		if err != nil {
			return err
		}
		created = *cu
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var customer models.Customer
	err := h.do(c, func(ctx context.Context) error {
		cu, found := h.roster.FindByID(id)
		if !found {
			return fmt.Errorf("%w: %d", models.ErrCustomerNotFound, id)
		}
		customer = *cu
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}
