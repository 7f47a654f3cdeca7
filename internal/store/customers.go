package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pharmacy-ops/internal/models"

	"go.uber.org/zap"
)

// AppendCustomer adds one customer record to the roster log
func (s *Store) AppendCustomer(ctx context.Context, c *models.Customer) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	line := strings.Join([]string{strconv.FormatInt(c.ID, 10), c.Name, c.Phone}, ",")
	if err := s.appendLines(s.files.CustomersFile, []string{line}); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

// LoadCustomers reads the roster log
func (s *Store) LoadCustomers(ctx context.Context) ([]*models.Customer, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	lines, err := s.readLines(s.files.CustomersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	customers := make([]*models.Customer, 0, len(lines))
	for i, line := range lines {
		c, err := decodeCustomer(line)
		if err != nil {
			s.skip(s.files.CustomersFile, i+1, line, err)
			continue
		}
		customers = append(customers, c)
	}

	s.logger.Debug("Customers loaded", zap.Int("count", len(customers)))
	return customers, nil
}

// MaxCustomerRecordID returns the highest ID on any roster line, malformed
// lines included
func (s *Store) MaxCustomerRecordID(ctx context.Context) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	id, err := s.maxLeadingID(s.files.CustomersFile)
	if err != nil {
		return 0, fmt.Errorf("failed to scan customers: %w", err)
	}
	return id, nil
}

func decodeCustomer(line string) (*models.Customer, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return nil, fmt.Errorf("expected 3 fields, got %d", len(parts))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid customer id %q", parts[0])
	}

	return &models.Customer{
		ID:    id,
		Name:  strings.TrimSpace(parts[1]),
		Phone: strings.TrimSpace(parts[2]),
	}, nil
}
