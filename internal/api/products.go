package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts returns the catalog, or only low-stock rows with ?low_stock=true
func (h *Handler) listProducts(c *gin.Context) {
	lowOnly, _ := strconv.ParseBool(c.Query("low_stock"))

	var products []*models.Product
	err := h.do(c, func(ctx context.Context) error {
		if lowOnly {
			products = cloneProducts(h.catalog.LowStock())
		} else {
			products = cloneProducts(h.catalog.List())
		}
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.NewProduct
	if !bindJSON(c, &req) {
		return
	}

	var created *models.Product
	err := h.do(c, func(ctx context.Context) error {
		p, err := h.catalog.Create(ctx, req)
		if err != nil {
			return err
		}
		created = p.Clone()
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var product *models.Product
	err := h.do(c, func(ctx context.Context) error {
		p, found := h.catalog.FindByID(id)
		if !found {
			return fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
		}
		product = p.Clone()
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) editProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ProductEdit
	if !bindJSON(c, &req) {
		return
	}

	var product *models.Product
	err := h.do(c, func(ctx context.Context) error {
		p, err := h.catalog.Edit(ctx, id, req)
		if err != nil {
			return err
		}
		product = p.Clone()
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) removeProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	err := h.do(c, func(ctx context.Context) error {
		removed, err := h.catalog.Remove(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
		}
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) adjustProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req adjustRequest
	if !bindJSON(c, &req) {
		return
	}

	var product *models.Product
	err := h.do(c, func(ctx context.Context) error {
		found, err := h.catalog.AdjustQuantity(ctx, id, req.Delta)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
		}
		p, _ := h.catalog.FindByID(id)
		product = p.Clone()
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// cloneProducts detaches products from the catalog before they leave the actor
func cloneProducts(in []*models.Product) []*models.Product {
	out := make([]*models.Product, 0, len(in))
	for _, p := range in {
		out = append(out, p.Clone())
	}
	return out
}
