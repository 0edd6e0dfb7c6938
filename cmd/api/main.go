package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"splashpark/internal/api"
	"splashpark/internal/auth"
	"splashpark/internal/config"
	"splashpark/internal/coupon"
	"splashpark/internal/database"
	"splashpark/internal/domain"
	"splashpark/internal/events"
	"splashpark/internal/export"
	"splashpark/internal/logging"
	"splashpark/internal/metrics"
	"splashpark/internal/models"
	"splashpark/internal/notify"
	"splashpark/internal/pricing"
	"splashpark/internal/repository"
	"splashpark/internal/service"
	"splashpark/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
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
		defer (func() { _ = closer.Close() })()
	}

	zones, err := loadZones(cfg, &logger)
	if err != nil {
		return err
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, zones, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	slotCache := initSlotCache(cfg, redisClient, &logger)
	dispatcher := initDispatcher(cfg, logger)

	retryPolicy := worker.RetryPolicy{
		MaxRetries:    cfg.Notify.MaxRetries,
		InitialDelay:  time.Duration(cfg.Notify.InitialDelayMs) * time.Millisecond,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}
	notifyWorker := notify.NewNotifyWorker(
		db, dispatcher, redisClient, retryPolicy,
		time.Duration(cfg.Notify.DispatchTimeoutSecs)*time.Second, logger,
	)
	go notifyWorker.Start(ctx)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	registry := coupon.NewStaticRegistry(cfg.Coupons)
	ledger := coupon.NewLedger(registry)
	calc := pricing.NewCalculator(cfg.AddOns)
	eventBus := events.NewEventBus()

	bookingService := service.NewBookingService(
		db, slotCache, ledger, calc, eventBus, notifyWorker, nil,
		cfg.Booking.MaxBookingDays,
		time.Duration(cfg.Payment.VerifyTimeoutSecs)*time.Second,
		&logger,
	)

	session := auth.NewSession(cfg.Admin)
	exporter := export.NewExporter(db, &logger)

	httpServer := api.NewHTTPServer(cfg.API, bookingService, session, exporter, dispatcher, logger)
	return startServer(ctx, httpServer, &logger)
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
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadZones reads the zone catalog. A standalone zones.yaml wins over the
// zones block in the main config so the catalog can be edited separately.
func loadZones(cfg *config.Config, logger *zerolog.Logger) ([]models.Zone, error) {
	zonesPath := os.Getenv("ZONES_PATH")
	if zonesPath == "" {
		zonesPath = "configs/zones.yaml"
	}

	zonesData, err := os.ReadFile(zonesPath)
	if err != nil {
		if os.IsNotExist(err) && len(cfg.Zones) > 0 {
			return cfg.Zones, nil
		}
		logger.Error().Err(err).Str("zones_path", zonesPath).Msg("read zones")
		return nil, err
	}

	var zonesConfig struct {
		Zones []models.Zone `yaml:"zones"`
	}
	if err := yaml.Unmarshal(zonesData, &zonesConfig); err != nil {
		logger.Error().Err(err).Str("zones_path", zonesPath).Msg("parse zones")
		return nil, err
	}

	if err := config.ValidateZones(zonesConfig.Zones); err != nil {
		logger.Error().Err(err).Msg("zones validation failed")
		return nil, err
	}

	for i := range zonesConfig.Zones {
		if zonesConfig.Zones[i].Capacity == 0 {
			zonesConfig.Zones[i].Capacity = 1
		}
		if zonesConfig.Zones[i].DefaultDuration == 0 {
			zonesConfig.Zones[i].DefaultDuration = cfg.Booking.DefaultDuration
		}
	}
	return zonesConfig.Zones, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("create database directory")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("create exports directory")
			return err
		}
	}
	return nil
}

func initDatabase(cfg *config.Config, zones []models.Zone, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	db.SetZones(zones)
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSlotCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SlotCache {
	ttl := time.Duration(cfg.Booking.SlotCacheTTLSecs) * time.Second
	fallback := repository.NewMemorySlotCache(ttl)
	if redisClient == nil {
		return fallback
	}
	primary := repository.NewRedisSlotCache(redisClient, ttl)
	return repository.NewFailoverSlotCache(primary, fallback, logger)
}

func initDispatcher(cfg *config.Config, logger zerolog.Logger) domain.NotificationDispatcher {
	if cfg.Notify.WebhookURL != "" {
		logger.Info().Str("webhook_url", cfg.Notify.WebhookURL).Msg("webhook dispatcher enabled")
		return notify.NewWebhookDispatcher(cfg.Notify.WebhookURL, logger)
	}
	return notify.NewLogDispatcher(logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.API.MetricsEnabled {
		return
	}

	metrics.Register()
	port := cfg.API.MetricsPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
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

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}
