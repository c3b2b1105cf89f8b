package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/config"
	"github.com/shopfront/order-service/internal/database"
	"github.com/shopfront/order-service/internal/handler"
	"github.com/shopfront/order-service/internal/infrastructure/cache"
	"github.com/shopfront/order-service/internal/infrastructure/events"
	"github.com/shopfront/order-service/internal/middleware"
	"github.com/shopfront/order-service/internal/repo"
	"github.com/shopfront/order-service/internal/service"
	"github.com/shopfront/order-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	shutdownTracing, err := middleware.InitTracing(ctx, cfg.ServiceName, cfg.OTLPAddr)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	dbService, err := database.New(ctx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if err := dbService.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	productCache, err := newProductCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer publisher.Close()

	db := dbService.DB()
	repos := repo.NewRepositories()

	walletService := service.NewWalletService(db, repos.Users, logger)
	productService := service.NewProductService(db, repos.Products, productCache, logger)
	cartService := service.NewCartService(db, repos.Carts, repos.Products, logger)
	orderService := service.NewOrderService(db, repos, productCache, logger)

	router := handler.NewRouter(handler.Deps{
		ServiceName: cfg.ServiceName,
		CORSOrigins: cfg.CORS,
		DB:          dbService,
		Auth:        middleware.NewAuthenticator(cfg.Auth.JWTSecret, walletService, logger),
		Orders:      orderService,
		Carts:       cartService,
		Wallet:      walletService,
		Products:    productService,
		Logger:      logger,
	})

	workerCtx, stopWorker := context.WithCancel(ctx)
	relay := worker.NewOutboxRelay(db, repos.Outbox, publisher, cfg.Outbox.Interval, cfg.Outbox.BatchSize, logger)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(workerCtx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Order service started", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	stopWorker()
	<-relayDone

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newProductCache falls back to no caching when REDIS_ADDR is unset.
func newProductCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.ProductCache, error) {
	if cfg.Redis.Addr == "" {
		logger.Info("Redis not configured, product cache disabled")
		return cache.Nop{}, nil
	}
	rdb, err := cache.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	return cache.NewProductCache(rdb, cfg.Redis.TTL), nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("Kafka not configured, events are logged only")
		return events.NewLogPublisher(logger), nil
	}
	producer, err := events.NewSyncProducer(cfg.Kafka, logger)
	if err != nil {
		return nil, err
	}
	return events.NewKafkaPublisher(producer, cfg.Kafka.Topic, logger), nil
}
