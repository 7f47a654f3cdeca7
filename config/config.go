package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// StorageConfig locates the data files. File names are relative to DataDir.
type StorageConfig struct {
	DataDir          string
	ProductsFile     string
	CustomersFile    string
	OrdersFile       string
	OrderLinesFile   string
	ShiftStateFile   string
	ShiftSummaryFile string
	CredentialsFile  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers     []string
	TopicEvents string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type BusinessConfig struct {
	LowStockThreshold int
	SeedSampleData    bool
	SessionTTL        time.Duration
}

// DefaultStorage returns the file layout used when nothing is overridden
func DefaultStorage(dataDir string) StorageConfig {
	return StorageConfig{
		DataDir:          dataDir,
		ProductsFile:     "inventory.txt",
		CustomersFile:    "customers.txt",
		OrdersFile:       "orders.txt",
		OrderLinesFile:   "order_details.txt",
		ShiftStateFile:   "shift_state.txt",
		ShiftSummaryFile: "shift_summaries.txt",
		CredentialsFile:  "users.txt",
	}
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	lowStock, _ := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10"))
	sessionTTL, _ := strconv.Atoi(getEnv("SESSION_TTL_MINUTES", "720"))
	seed, _ := strconv.ParseBool(getEnv("SEED_SAMPLE_DATA", "true"))

	defaults := DefaultStorage(getEnv("DATA_DIR", "data"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Storage: StorageConfig{
			DataDir:          defaults.DataDir,
			ProductsFile:     getEnv("PRODUCTS_FILE", defaults.ProductsFile),
			CustomersFile:    getEnv("CUSTOMERS_FILE", defaults.CustomersFile),
			OrdersFile:       getEnv("ORDERS_FILE", defaults.OrdersFile),
			OrderLinesFile:   getEnv("ORDER_LINES_FILE", defaults.OrderLinesFile),
			ShiftStateFile:   getEnv("SHIFT_STATE_FILE", defaults.ShiftStateFile),
			ShiftSummaryFile: getEnv("SHIFT_SUMMARY_FILE", defaults.ShiftSummaryFile),
			CredentialsFile:  getEnv("CREDENTIALS_FILE", defaults.CredentialsFile),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(getEnv("KAFKA_BROKERS", "")),
			TopicEvents: getEnv("KAFKA_TOPIC_EVENTS", "pharmacy-events"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
		Business: BusinessConfig{
			LowStockThreshold: lowStock,
			SeedSampleData:    seed,
			SessionTTL:        time.Duration(sessionTTL) * time.Minute,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, data_dir=%s", cfg.Server.Env, cfg.Server.Port, cfg.Storage.DataDir)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
