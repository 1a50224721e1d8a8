package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/api"
	"github.com/Alkitu/alkitu-template-sub002/internal/config"
	"github.com/Alkitu/alkitu-template-sub002/internal/database"
	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/events"
	"github.com/Alkitu/alkitu-template-sub002/internal/export"
	"github.com/Alkitu/alkitu-template-sub002/internal/google"
	"github.com/Alkitu/alkitu-template-sub002/internal/logging"
	"github.com/Alkitu/alkitu-template-sub002/internal/metrics"
	"github.com/Alkitu/alkitu-template-sub002/internal/notify"
	"github.com/Alkitu/alkitu-template-sub002/internal/repository"
	"github.com/Alkitu/alkitu-template-sub002/internal/service"
	"github.com/Alkitu/alkitu-template-sub002/internal/storage"
	"github.com/Alkitu/alkitu-template-sub002/internal/worker"

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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("database init error")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	limiter := initRateLimiter(redisClient, logger)

	sheetsService := initGoogleSheets(ctx, cfg, logger)
	notifier := initNotifier(cfg, logger)

	var syncWorker *worker.SyncWorker
	if sheetsService != nil || notifier != nil {
		syncWorker = worker.NewSyncWorker(db, sheetsWorkerArg(sheetsService), notifierArg(notifier), redisClient, worker.RetryPolicy{}, nil)
		go syncWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()
	subscribeRequestEvents(eventBus, logger)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		go serveMetrics(cfg, logger)
	}

	var workerIface domain.SyncWorker
	if syncWorker != nil {
		workerIface = syncWorker
	}
	notificationService := service.NewNotificationService(db, workerIface, logger)
	requestService := service.NewRequestService(db, notificationService, eventBus, workerIface, logger)
	userService := service.NewUserService(db, logger)
	catalogService := service.NewCatalogService(db, logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logger)
		go backupService.Start(ctx)
	}

	folders := storage.NewFolderService(cfg.Storage.AttachmentsPath, logger)
	exporter := export.NewExporter(cfg.Exports.Path, logger)

	server := api.NewServer(cfg, api.Deps{
		Auth:          userService,
		Requests:      requestService,
		Notifications: notificationService,
		Catalog:       catalogService,
		Users:         userService,
		Exporter:      exporter,
		Attachments:   folders,
		Limiter:       limiter,
	}, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		repository.Close(redisClient)
	}()

	return server.Start()
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, &logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("database directory error")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("exports directory error")
		return err
	}
	if err := os.MkdirAll(cfg.Storage.AttachmentsPath, 0o755); err != nil {
		logger.Error().Err(err).Msg("attachments directory error")
		return err
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}
	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}
	return client
}

func initRateLimiter(redisClient *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	fallback := repository.NewMemoryRateLimiter()
	if redisClient == nil {
		return fallback
	}
	primary := repository.NewRedisRateLimiter(redisClient)
	return repository.NewFailoverRateLimiter(primary, fallback, logger)
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.RequestsSpreadsheetID == "" {
		return nil
	}

	sheetsSvc, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.RequestsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Google Sheets init failed, mirror disabled")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets mirror enabled")
	return sheetsSvc
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) *notify.TelegramNotifier {
	if !cfg.Notifications.Enabled || !cfg.FeatureEnabled(config.FeatureNotifications) {
		return nil
	}
	notifier, err := notify.NewTelegramNotifier(cfg.Notifications.TelegramBotToken, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Telegram notifier init failed, delivery disabled")
		return nil
	}
	return notifier
}

// nil-interface guards: a typed nil must not reach the worker as a non-nil
// interface value.
func sheetsWorkerArg(s *google.SheetsService) domain.SheetsWriter {
	if s == nil {
		return nil
	}
	return s
}

func notifierArg(n *notify.TelegramNotifier) domain.Notifier {
	if n == nil {
		return nil
	}
	return n
}

func serveMetrics(cfg *config.Config, logger *zerolog.Logger) {
	addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func subscribeRequestEvents(bus *events.EventBus, logger *zerolog.Logger) {
	logEvent := func(ev *events.Event) error {
		var payload events.RequestEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return err
		}
		logger.Info().
			Str("event", ev.Type).
			Int64("request_id", payload.RequestID).
			Str("custom_id", payload.CustomID).
			Str("status", payload.Status).
			Str("actor_role", payload.ActorRole).
			Msg("request event")
		return nil
	}

	for _, eventType := range []string{
		events.EventRequestCreated,
		events.EventRequestUpdated,
		events.EventRequestAssigned,
		events.EventRequestCancelRequested,
		events.EventRequestCancelled,
		events.EventRequestCompleted,
		events.EventRequestDeleted,
	} {
		bus.Subscribe(eventType, logEvent)
	}
}
