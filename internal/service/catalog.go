package service

import (
	"context"
	"fmt"
	"time"

	"pharmacy-ops/internal/idalloc"
	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/store"
	"pharmacy-ops/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultLowStockThreshold is used when the catalog is created with a non-positive threshold
const DefaultLowStockThreshold = 10

// Catalog owns the sellable products and their stock levels. Every mutation
// rewrites the inventory file; when that write fails the in-memory change is
// undone before the error is returned.
type Catalog struct {
	store     *store.Store
	ids       *idalloc.Allocator
	events    EventPublisher
	logger    *zap.Logger
	threshold int

	products []*models.Product
	byID     map[int64]*models.Product
}

// NewCatalog creates an empty catalog. Call Load to read the inventory file.
func NewCatalog(st *store.Store, ids *idalloc.Allocator, events EventPublisher, lowStockThreshold int, logger *zap.Logger) *Catalog {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Catalog{
		store:     st,
		ids:       ids,
		events:    publisherOr(events),
		logger:    util.LoggerOr(logger),
		threshold: lowStockThreshold,
		byID:      make(map[int64]*models.Product),
	}
}

// NewProduct describes a product to be created with a fresh ID
type NewProduct struct {
	Name                 string             `json:"name" binding:"required"`
	Price                decimal.Decimal    `json:"price"`
	Quantity             int                `json:"quantity"`
	Kind                 models.ProductKind `json:"kind"`
	PrescriptionRequired bool               `json:"prescription_required"`
	SkinType             string             `json:"skin_type"`
}

// Build turns the request into an unsaved product with ID 0
func (np NewProduct) Build() (*models.Product, error) {
	kind := np.Kind
	if kind == "" {
		kind = models.KindPlain
	}

	var p *models.Product
	switch kind {
	case models.KindPlain:
		p = models.NewPlainProduct(0, np.Name, np.Price, np.Quantity)
	case models.KindMedicine:
		p = models.NewMedicine(0, np.Name, np.Price, np.Quantity, np.PrescriptionRequired)
	case models.KindCosmetic:
		p = models.NewCosmetic(0, np.Name, np.Price, np.Quantity, np.SkinType)
	default:
		return nil, fmt.Errorf("%w: unknown product kind %q", models.ErrInvalidField, kind)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ProductEdit holds field changes. Nil fields are left as they are.
type ProductEdit struct {
	Name                 *string          `json:"name"`
	Price                *decimal.Decimal `json:"price"`
	PrescriptionRequired *bool            `json:"prescription_required"`
	SkinType             *string          `json:"skin_type"`
}

// Load replaces the in-memory catalog with the inventory file and re-seeds the
// product allocator. On a read failure the allocator is seeded to 0.
func (c *Catalog) Load(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Catalog.Load")
	defer span.End()

	products, err := c.store.LoadProducts(ctx)
	if err != nil {
		c.ids.Seed(0)
		c.logger.Error("Inventory unreadable, product ids restart at 1", zap.Error(err))
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	c.products = products
	c.byID = make(map[int64]*models.Product, len(products))
	var maxID int64
	for _, p := range products {
		c.byID[p.ID] = p
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	recordMax, err := c.store.MaxProductRecordID(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if recordMax > maxID {
		maxID = recordMax
	}
	c.ids.Seed(maxID)
	c.updateLowStockGauge()

	c.logger.Info("Catalog loaded", zap.Int("count", len(products)), zap.Int64("max_id", maxID))
	return nil
}

// Add inserts a product, or merges its quantity into the product with the same
// ID. A zero ID is replaced with a freshly allocated one. The stored product is
// returned.
func (c *Catalog) Add(ctx context.Context, p *models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Add")
	defer span.End()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if existing, ok := c.byID[p.ID]; ok && p.ID != 0 {
		previous := existing.Quantity
		existing.Quantity += p.Quantity
		if err := c.persist(ctx); err != nil {
			existing.Quantity = previous
			return nil, err
		}
		c.logger.Info("Product restocked",
			zap.Int64("product_id", existing.ID),
			zap.Int("added", p.Quantity),
			zap.Int("quantity", existing.Quantity))
		return existing, nil
	}

	if p.ID == 0 {
		p.ID = c.ids.Next()
	} else {
		c.ids.Observe(p.ID)
	}

	c.products = append(c.products, p)
	c.byID[p.ID] = p
	if err := c.persist(ctx); err != nil {
		c.products = c.products[:len(c.products)-1]
		delete(c.byID, p.ID)
		return nil, err
	}

	c.logger.Info("Product added",
		zap.Int64("product_id", p.ID),
		zap.String("name", p.Name),
		zap.String("kind", string(p.Kind)))
	return p, nil
}

// Create validates the request, allocates an ID and adds the product
func (c *Catalog) Create(ctx context.Context, np NewProduct) (*models.Product, error) {
	p, err := np.Build()
	if err != nil {
		return nil, err
	}
	return c.Add(ctx, p)
}

// AdjustQuantity adds delta to a product's stock. An unknown product is not an
// error: it is logged and reported as false. A change that would take stock
// below zero is rejected with a *models.StockError before anything is written.
func (c *Catalog) AdjustQuantity(ctx context.Context, id int64, delta int) (bool, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.AdjustQuantity")
	defer span.End()

	p, ok := c.byID[id]
	if !ok {
		util.StockAdjustmentsTotal.WithLabelValues("not_found").Inc()
		c.logger.Warn("Stock adjustment for unknown product",
			zap.Int64("product_id", id),
			zap.Int("delta", delta))
		return false, nil
	}

	if p.Quantity+delta < 0 {
		util.StockAdjustmentsTotal.WithLabelValues("insufficient").Inc()
		return true, &models.StockError{
			ProductID: p.ID,
			Name:      p.Name,
			Available: p.Quantity,
			Requested: -delta,
		}
	}

	previous := p.Quantity
	p.Quantity += delta
	if err := c.persist(ctx); err != nil {
		p.Quantity = previous
		util.StockAdjustmentsTotal.WithLabelValues("error").Inc()
		return true, err
	}
	util.StockAdjustmentsTotal.WithLabelValues("ok").Inc()

	event := &models.StockAdjustedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeStockAdjusted, time.Now()),
		ProductID:   p.ID,
		Delta:       delta,
		NewQuantity: p.Quantity,
	}
	if err := c.events.PublishStockAdjusted(ctx, event); err != nil {
		c.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
	}

	c.logger.Debug("Stock adjusted",
		zap.Int64("product_id", p.ID),
		zap.Int("delta", delta),
		zap.Int("quantity", p.Quantity))
	return true, nil
}

// Edit changes product fields in place so open orders keep pricing through
// the same product.
func (c *Catalog) Edit(ctx context.Context, id int64, edit ProductEdit) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Edit")
	defer span.End()

	p, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
	}

	updated := p.Clone()
	if edit.Name != nil {
		updated.Name = *edit.Name
	}
	if edit.Price != nil {
		updated.Price = *edit.Price
	}
	if edit.PrescriptionRequired != nil {
		if updated.Kind != models.KindMedicine {
			return nil, fmt.Errorf("%w: only medicines carry a prescription flag", models.ErrInvalidField)
		}
		updated.PrescriptionRequired = *edit.PrescriptionRequired
	}
	if edit.SkinType != nil {
		if updated.Kind != models.KindCosmetic {
			return nil, fmt.Errorf("%w: only cosmetics carry a skin type", models.ErrInvalidField)
		}
		updated.SkinType = *edit.SkinType
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	previous := *p
	*p = *updated
	if err := c.persist(ctx); err != nil {
		*p = previous
		return nil, err
	}

	c.logger.Info("Product edited", zap.Int64("product_id", id))
	return p, nil
}

// FindByID returns the live product. Absence is reported by ok, not an error.
func (c *Catalog) FindByID(id int64) (*models.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Remove hard-deletes a product and reports whether one was removed
func (c *Catalog) Remove(ctx context.Context, id int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Remove")
	defer span.End()

	idx := -1
	for i, p := range c.products {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	removed := c.products[idx]
	previous := c.products
	c.products = make([]*models.Product, 0, len(previous)-1)
	c.products = append(c.products, previous[:idx]...)
	c.products = append(c.products, previous[idx+1:]...)
	delete(c.byID, id)

	if err := c.persist(ctx); err != nil {
		c.products = previous
		c.byID[id] = removed
		return false, err
	}

	c.logger.Info("Product removed", zap.Int64("product_id", id), zap.String("name", removed.Name))
	return true, nil
}

// IsAvailable reports whether qty units of the product are in stock
func (c *Catalog) IsAvailable(id int64, qty int) bool {
	p, ok := c.byID[id]
	return ok && p.IsAvailable(qty)
}

// List returns the products in file order
func (c *Catalog) List() []*models.Product {
	out := make([]*models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// LowStock returns products whose stock is below the configured threshold
func (c *Catalog) LowStock() []*models.Product {
	var out []*models.Product
	for _, p := range c.products {
		if p.Quantity < c.threshold {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of products
func (c *Catalog) Len() int {
	return len(c.products)
}

func (c *Catalog) persist(ctx context.Context) error {
	if err := c.store.SaveProducts(ctx, c.products); err != nil {
		c.logger.Error("Failed to persist catalog", zap.Error(err))
		return err
	}
	c.updateLowStockGauge()
	return nil
}

func (c *Catalog) updateLowStockGauge() {
	util.LowStockProducts.Set(float64(len(c.LowStock())))
}
