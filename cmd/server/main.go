/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the car wash back office server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, YAML file, then command-line flags)
  2. Initialize SQLite store
  3. Wire optional integrations: Telegram, Redis, metrics, Google Sheets
  4. Create services and the API handler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides server.port)
  -db      SQLite database path (overrides database.path)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  CONFIG_PATH  YAML config file (default: configs/config.yaml)
  Any ${VAR} referenced from the YAML file, e.g. TELEGRAM_BOT_TOKEN

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sheets sync scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Wait for queued Telegram messages
  5. Close Redis and database connections
  6. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/carwash.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration file format
  - api/server.go: Router configuration
  - api/scheduler.go: Sheets sync scheduler
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/warp/carwash-backoffice/api"
	"github.com/warp/carwash-backoffice/cache"
	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/compensation"
	"github.com/warp/carwash-backoffice/config"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/metrics"
	"github.com/warp/carwash-backoffice/notify"
	"github.com/warp/carwash-backoffice/report"
	"github.com/warp/carwash-backoffice/sheets"
	"github.com/warp/carwash-backoffice/shift"
	"github.com/warp/carwash-backoffice/store/sqlite"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if err := cfg.EnsureDataDir(); err != nil {
		logger.Fatal().Err(err).Msg("failed to create data directory")
	}
	loc := cfg.Location()

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to initialize database")
	}
	defer store.Close()

	// Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr(), Handler: mux, ReadTimeout: 15 * time.Second}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr()).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	// Notifications
	var notifier notify.Notifier = notify.NopSender{}
	var asyncNotifier *notify.AsyncSender
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramSender(cfg.NotifyConfig(), &logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram disabled, notifications will be dropped")
		} else {
			asyncNotifier = notify.NewAsyncSender(tg, notify.DefaultAsyncTimeout)
			notifier = asyncNotifier
		}
	}

	// Settings cache
	var settings domain.SettingsStore = store
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unreachable, settings are read from the database")
		}
		cancel()
		settings = cache.NewSettingsCache(store, redisClient, cfg.SettingsTTL(), &logger)
	}

	// Services
	clock := calendar.SystemClock{}
	shifts := shift.NewService(store, clock, loc, notifier, cfg.Pricing.Transfer, &logger)
	penalties := compensation.NewPenaltyService(store, clock, notifier, &logger)
	reports := report.NewService(store, settings, &logger)

	// Initialize handler
	handler := api.NewHandler(store, shifts, penalties, reports, settings, &logger)
	handler.Runs = store

	var scheduler *api.SheetSyncScheduler
	if cfg.Sheets.Enabled {
		syncer, err := sheets.NewSyncer(context.Background(), sheets.Config{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		}, store, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize sheets client")
		}
		scheduler = api.NewSheetSyncScheduler(reports, syncer, store, clock, loc, &logger)
		scheduler.CheckInterval = cfg.SyncInterval()
		scheduler.Start()
		handler.Sync = scheduler
	}

	// Create router
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Str("timezone", loc.String()).
			Str("shift_date", calendar.CurrentShiftDate(clock.Now(), loc).String()).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if asyncNotifier != nil {
		asyncNotifier.Wait()
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(ctx)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info().Msg("server stopped")
}
