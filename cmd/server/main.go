package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ostello/internal/api"
	"ostello/internal/config"
	"ostello/internal/database"
	"ostello/internal/domain"
	"ostello/internal/events"
	"ostello/internal/export"
	"ostello/internal/hold"
	"ostello/internal/logging"
	"ostello/internal/metrics"
	"ostello/internal/repository"
	"ostello/internal/service"
	"ostello/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	inventoryPath := os.Getenv("INVENTORY_PATH")
	if inventoryPath == "" {
		inventoryPath = cfg.Inventory.Path
	}
	inventory, err := config.LoadInventory(inventoryPath)
	if err != nil {
		logger.Error().Err(err).Str("inventory_path", inventoryPath).Msg("load inventory")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()
	db.SetInventory(inventory.Rooms, inventory.GuestRules)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cartTTL := time.Duration(cfg.Booking.CartTTLSeconds) * time.Second
	carts := initCartRepository(redisClient, cartTTL, &logger)

	eventBus := events.NewEventBus()

	holdTTL := time.Duration(cfg.Hold.TTLSeconds) * time.Second
	holds := hold.NewManager(db, eventBus, holdTTL, cfg.Booking.MaxAdvanceDays, &logger)

	booking := service.NewBookingService(db, holds, carts, eventBus, inventory.PrivacyTiers, &logger)
	cart := service.NewCartService(db, holds, carts, &logger)

	var exporter *export.Exporter
	if cfg.Exports.Path != "" {
		exporter = export.NewExporter(db, cfg.Exports.Path, &logger)
	}

	httpServer := api.NewHTTPServer(cfg.API, booking, cart, exporter, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paymentTimeout := time.Duration(cfg.Hold.PaymentTimeoutMinutes) * time.Minute
	sweeper := worker.NewSweepWorker(holds, cfg.Hold.SweepSchedule, paymentTimeout, worker.RetryPolicy{}, &logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Error().Err(err).Str("schedule", cfg.Hold.SweepSchedule).Msg("start sweep worker")
		return err
	}
	defer sweeper.Stop()

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCartRepository подбирает хранилище корзин: Redis с памятью как
// fallback, либо только память.
func initCartRepository(redisClient *redis.Client, ttl time.Duration, logger *zerolog.Logger) domain.CartRepository {
	memory := repository.NewMemoryCartRepository(ttl)
	if redisClient == nil {
		logger.Info().Msg("using in-memory cart repository")
		return memory
	}

	primary := repository.NewRedisCartRepository(redisClient, ttl)
	return repository.NewFailoverCartRepository(primary, memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
