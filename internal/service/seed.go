package service

import (
	"context"

	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type sampleCustomer struct {
	name  string
	phone string
}

var sampleCustomers = []sampleCustomer{
	{"Farida", "01012345678"},
	{"Haneen", "01098765432"},
	{"Ahmed", "01123456789"},
}

var sampleProducts = []NewProduct{
	{Name: "Panadol", Price: decimal.RequireFromString("15.50"), Quantity: 100, Kind: models.KindMedicine},
	{Name: "Insulin", Price: decimal.RequireFromString("120.00"), Quantity: 25, Kind: models.KindMedicine, PrescriptionRequired: true},
	{Name: "Face Cream", Price: decimal.RequireFromString("45.00"), Quantity: 30, Kind: models.KindCosmetic, SkinType: "Normal"},
	{Name: "Aspirin", Price: decimal.RequireFromString("12.00"), Quantity: 75, Kind: models.KindMedicine},
}

// Seed fills an empty catalog and an empty roster with sample data. A
// collection that already holds records is left alone.
func Seed(ctx context.Context, catalog *Catalog, roster *Roster, logger *zap.Logger) error {
	logger = util.LoggerOr(logger)

	if roster.Len() == 0 {
		for _, sc := range sampleCustomers {
			if _, err := roster.Create(ctx, sc.name, sc.phone); err != nil {
				return err
			}
		}
		logger.Info("Sample customers added", zap.Int("count", len(sampleCustomers)))
	}

	if catalog.Len() == 0 {
		for _, np := range sampleProducts {
			if _, err := catalog.Create(ctx, np); err != nil {
				return err
			}
		}
		logger.Info("Sample products added", zap.Int("count", len(sampleProducts)))
	}
	return nil
}
