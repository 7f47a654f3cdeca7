package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pharmacy-ops/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaveProducts rewrites the inventory file with the full catalog
func (s *Store) SaveProducts(ctx context.Context, products []*models.Product) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, EncodeProduct(p))
	}

	if err := s.rewrite(s.files.ProductsFile, lines); err != nil {
		return fmt.Errorf("failed to save products: %w", err)
	}
	return nil
}

// LoadProducts reads the inventory file. Malformed lines are skipped with a warning.
func (s *Store) LoadProducts(ctx context.Context) ([]*models.Product, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	lines, err := s.readLines(s.files.ProductsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	products := make([]*models.Product, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for i, line := range lines {
		p, err := DecodeProduct(line)
		if err != nil {
			s.skip(s.files.ProductsFile, i+1, line, err)
			continue
		}
		if seen[p.ID] {
			s.skip(s.files.ProductsFile, i+1, line, fmt.Errorf("duplicate product id %d", p.ID))
			continue
		}
		seen[p.ID] = true
		products = append(products, p)
	}

	s.logger.Debug("Products loaded", zap.Int("count", len(products)))
	return products, nil
}

// MaxProductRecordID returns the highest ID on any inventory line, malformed
// lines included, so skipped records never have their ID handed out again
func (s *Store) MaxProductRecordID(ctx context.Context) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	id, err := s.maxLeadingID(s.files.ProductsFile)
	if err != nil {
		return 0, fmt.Errorf("failed to scan products: %w", err)
	}
	return id, nil
}

// EncodeProduct renders id,name,price,quantity,kind,extra
func EncodeProduct(p *models.Product) string {
	extra := ""
	switch p.Kind {
	case models.KindMedicine:
		extra = strconv.FormatBool(p.PrescriptionRequired)
	case models.KindCosmetic:
		extra = p.SkinType
	}

	kind := p.Kind
	if kind == "" {
		kind = models.KindPlain
	}

	return strings.Join([]string{
		strconv.FormatInt(p.ID, 10),
		p.Name,
		p.Price.StringFixed(2),
		strconv.Itoa(p.Quantity),
		string(kind),
		extra,
	}, ",")
}

// DecodeProduct parses an inventory record. Four-field records are plain
// products; the kind and its payload follow when present.
func DecodeProduct(line string) (*models.Product, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 4 || len(parts) > 6 {
		return nil, fmt.Errorf("expected 4 to 6 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid product id %q", parts[0])
	}
	name := parts[1]
	if name == "" {
		return nil, fmt.Errorf("empty product name")
	}
	price, err := decimal.NewFromString(parts[2])
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("invalid price %q", parts[2])
	}
	qty, err := strconv.Atoi(parts[3])
	if err != nil || qty < 0 {
		return nil, fmt.Errorf("invalid quantity %q", parts[3])
	}

	if len(parts) == 4 {
		return models.NewPlainProduct(id, name, price, qty), nil
	}

	kind, err := models.ParseProductKind(parts[4])
	if err != nil {
		return nil, err
	}
	extra := ""
	if len(parts) == 6 {
		extra = parts[5]
	}

	switch kind {
	case models.KindMedicine:
		rx := false
		if extra != "" {
			rx, err = strconv.ParseBool(extra)
			if err != nil {
				return nil, fmt.Errorf("invalid prescription flag %q", extra)
			}
		}
		return models.NewMedicine(id, name, price, qty, rx), nil
	case models.KindCosmetic:
		return models.NewCosmetic(id, name, price, qty, extra), nil
	default:
		return models.NewPlainProduct(id, name, price, qty), nil
	}
}
