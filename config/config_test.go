package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()

	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "inventory.txt", cfg.Storage.ProductsFile)
	assert.Equal(t, "order_details.txt", cfg.Storage.OrderLinesFile)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Business.LowStockThreshold)
	assert.Equal(t, 12*time.Hour, cfg.Business.SessionTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/pharmacy")
	t.Setenv("PRODUCTS_FILE", "products.txt")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SEED_SAMPLE_DATA", "false")

	cfg := Load()

	assert.Equal(t, "/tmp/pharmacy", cfg.Storage.DataDir)
	assert.Equal(t, "products.txt", cfg.Storage.ProductsFile)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Business.SeedSampleData)
}
