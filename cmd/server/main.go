package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacy-ops/config"
	"pharmacy-ops/internal/api"
	"pharmacy-ops/internal/broker"
	"pharmacy-ops/internal/idalloc"
	"pharmacy-ops/internal/redisclient"
	"pharmacy-ops/internal/service"
	"pharmacy-ops/internal/store"
	"pharmacy-ops/internal/util"
	"pharmacy-ops/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pharmacy operations service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	st, err := store.NewStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to open data directory", zap.Error(err))
	}
	logger.Info("Data directory ready", zap.String("dir", st.Dir()))

	var sessions service.SessionStore = service.NewMemorySessions()
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		sessions = redisClient.Sessions()
		logger.Info("Redis session store connected", zap.String("addr", cfg.Redis.Addr))
	}

	var events service.EventPublisher = service.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, logger)
		defer producer.Close()
		events = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	ids := idalloc.NewRegistry()
	catalog := service.NewCatalog(st, ids.For(idalloc.EntityProduct), events, cfg.Business.LowStockThreshold, logger)
	roster := service.NewRoster(st, ids.For(idalloc.EntityCustomer), logger)
	ledger := service.NewLedger(st, ids.For(idalloc.EntityOrder), catalog, roster, events, logger)
	shifts := service.NewShiftManager(st, ledger, sessions, events, logger)
	checkout := service.NewCheckout(ledger, catalog, shifts, logger)

	credentials, err := st.LoadCredentials(context.Background())
	if err != nil {
		logger.Fatal("Failed to load credentials", zap.Error(err))
	}
	auth := service.NewAuthenticator(credentials, sessions, cfg.Business.SessionTTL, logger)
	if auth.Users() == 0 {
		logger.Warn("No operator credentials found, nobody can log in",
			zap.String("file", st.Path(cfg.Storage.CredentialsFile)))
	}

	if err := loadState(context.Background(), cfg, catalog, roster, ledger, shifts, logger); err != nil {
		logger.Fatal("Failed to load data files", zap.Error(err))
	}
	logger.Info("Identifier high-water marks", zap.String("ids", ids.String()))

	actorCtx, actorCancel := context.WithCancel(context.Background())
	defer actorCancel()

	actor := worker.NewActor(64, logger)
	go func() {
		if err := actor.Start(actorCtx); err != nil && err != context.Canceled {
			logger.Error("Command queue error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Deps{
		Catalog:  catalog,
		Roster:   roster,
		Ledger:   ledger,
		Checkout: checkout,
		Shifts:   shifts,
		Auth:     auth,
		Actor:    actor,
		Logger:   logger,
	})
	handler.SetupRoutes(router)
	handler.SetReady(true)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	handler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	actor.Stop()

	logger.Info("Server exited")
}

// loadState reads every data file in dependency order: products and customers
// first, then orders that reference them, then the shift that references orders.
func loadState(
	ctx context.Context,
	cfg *config.Config,
	catalog *service.Catalog,
	roster *service.Roster,
	ledger *service.Ledger,
	shifts *service.ShiftManager,
	logger *zap.Logger,
) error {
	if err := catalog.Load(ctx); err != nil {
		return err
	}
	if _, err := roster.LoadAll(ctx); err != nil {
		return err
	}

	if cfg.Business.SeedSampleData {
		if err := service.Seed(ctx, catalog, roster, logger); err != nil {
			return fmt.Errorf("failed to seed sample data: %w", err)
		}
	}

	history, err := ledger.LoadAll(ctx)
	if err != nil {
		return err
	}
	if err := ledger.LoadLines(ctx, history...); err != nil {
		return err
	}

	if err := shifts.LoadState(ctx); err != nil {
		return err
	}
	if err := shifts.LoadMembership(ctx); err != nil {
		return err
	}

	shift := shifts.Current()
	logger.Info("State loaded",
		zap.Int("products", catalog.Len()),
		zap.Int("customers", roster.Len()),
		zap.Int("orders", len(history)),
		zap.String("shift", shift.Type.String()),
		zap.Int("shift_orders", len(shift.OrderIDs)))
	return nil
}
