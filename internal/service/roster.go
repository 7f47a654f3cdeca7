package service

import (
	"context"
	"fmt"

	"pharmacy-ops/internal/idalloc"
	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/store"
	"pharmacy-ops/internal/util"

	"go.uber.org/zap"
)

// Roster owns customer identity. Customers are only ever appended.
type Roster struct {
	store  *store.Store
	ids    *idalloc.Allocator
	logger *zap.Logger

	customers []*models.Customer
	byID      map[int64]*models.Customer
}

// NewRoster creates an empty roster. Call LoadAll to read the customer file.
func NewRoster(st *store.Store, ids *idalloc.Allocator, logger *zap.Logger) *Roster {
	return &Roster{
		store:  st,
		ids:    ids,
		logger: util.LoggerOr(logger),
		byID:   make(map[int64]*models.Customer),
	}
}

// Create validates and persists a new customer under a fresh ID
func (r *Roster) Create(ctx context.Context, name, phone string) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "Roster.Create")
	defer span.End()

	if err := models.ValidateField("customer name", name); err != nil {
		return nil, err
	}
	if err := models.ValidateField("phone", phone); err != nil {
		return nil, err
	}

	c := &models.Customer{ID: r.ids.Next(), Name: name, Phone: phone}
	if err := r.Save(ctx, c); err != nil {
		return nil, err
	}

	r.logger.Info("Customer created", zap.Int64("customer_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// Save appends a single customer record and adds it to the roster
func (r *Roster) Save(ctx context.Context, c *models.Customer) error {
	if _, ok := r.byID[c.ID]; ok {
		return fmt.Errorf("%w: customer %d already exists", models.ErrInvalidField, c.ID)
	}
	if err := r.store.AppendCustomer(ctx, c); err != nil {
		r.logger.Error("Failed to persist customer", zap.Int64("customer_id", c.ID), zap.Error(err))
		return err
	}

	r.ids.Observe(c.ID)
	r.customers = append(r.customers, c)
	r.byID[c.ID] = c
	return nil
}

// LoadAll replaces the roster with the customer file and re-seeds the
// customer allocator from the highest ID found.
func (r *Roster) LoadAll(ctx context.Context) ([]*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "Roster.LoadAll")
	defer span.End()

	customers, err := r.store.LoadCustomers(ctx)
	if err != nil {
		r.ids.Seed(0)
		r.logger.Error("Customer file unreadable, customer ids restart at 1", zap.Error(err))
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	r.customers = make([]*models.Customer, 0, len(customers))
	r.byID = make(map[int64]*models.Customer, len(customers))
	var maxID int64
	for _, c := range customers {
		if _, dup := r.byID[c.ID]; dup {
			r.logger.Warn("Duplicate customer id, keeping the first record", zap.Int64("customer_id", c.ID))
			continue
		}
		r.customers = append(r.customers, c)
		r.byID[c.ID] = c
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	recordMax, err := r.store.MaxCustomerRecordID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	if recordMax > maxID {
		maxID = recordMax
	}
	r.ids.Seed(maxID)

	r.logger.Info("Roster loaded", zap.Int("count", len(r.customers)), zap.Int64("max_id", maxID))
	return r.List(), nil
}

// List returns the customers in file order
func (r *Roster) List() []*models.Customer {
	out := make([]*models.Customer, len(r.customers))
	copy(out, r.customers)
	return out
}

// FindByID looks up a customer
func (r *Roster) FindByID(id int64) (*models.Customer, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Len returns the number of customers
func (r *Roster) Len() int {
	return len(r.customers)
}
