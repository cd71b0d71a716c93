package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finalscore/bot/internal/announcer"
	"finalscore/bot/internal/api"
	"finalscore/bot/internal/app"
	"finalscore/bot/internal/client"
	"finalscore/bot/internal/config"
	"finalscore/bot/internal/games"
	"finalscore/bot/internal/metrics"
	"finalscore/bot/internal/scheduler"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration (also reads .env, so it runs before the logger setup)
	cfg := config.MustLoad()

	// Setup logger
	setupLogger(cfg)

	log.Info().Msg("Starting NBA final score bot")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreBackend).
		Strs("channels", cfg.AnnounceChannels).
		Str("schedule", cfg.PollSchedule).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize NBA stats client
	statsClient := client.NewClient(
		cfg.StatsBaseURL,
		cfg.StatsTimeout,
		cfg.StatsMaxRetries,
		cfg.StatsRetryDelay,
	)
	fetcher := games.NewFetcher(statsClient)
	log.Info().Str("base_url", cfg.StatsBaseURL).Msg("NBA stats client initialized")

	checks := map[string]api.HealthCheck{}

	// Initialize Redis client
	rdb, err := app.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Initialize baseline store
	store, closeStore, err := app.BuildStore(ctx, cfg, rdb, checks)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize baseline store")
	}
	defer closeStore()

	// Initialize announcers
	var feed *announcer.LiveFeed
	if cfg.UsesLiveFeed() {
		feed = announcer.NewLiveFeed(cfg.OpsAllowedOrigins)
		defer feed.Close()
	}

	announcers, err := app.BuildAnnouncer(ctx, cfg, rdb, feed)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize announcers")
	}
	log.Info().Strs("channels", announcers.Names()).Msg("Announcers ready")

	// Create scheduler
	pollTicker, err := scheduler.NewCronTicker(cfg.PollSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create poll ticker")
	}

	sched, err := scheduler.NewScheduler(cfg, scheduler.Deps{
		Fetcher:   fetcher,
		Store:     store,
		Announcer: announcers,
		Ticker:    pollTicker,
		Sleeper:   scheduler.ContextSleeper{},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(gctx)
	})

	if cfg.EnableMetrics {
		handler := api.NewHandler(store, checks)
		if feed != nil {
			handler.WithLiveFeed(feed)
		}
		g.Go(func() error {
			return runOpsServer(gctx, cfg.MetricsPort, api.NewRouter(handler, cfg.OpsAllowedOrigins))
		})
	}

	// Update system uptime metric
	startTime := time.Now()
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker stopped with error")
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger(cfg *config.Config) {
	// Pretty console logging in development
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		parsedLevel, err := zerolog.ParseLevel(cfg.LogLevel)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// runOpsServer serves metrics, health and baseline endpoints until ctx is done
func runOpsServer(ctx context.Context, port int, handler http.Handler) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Msg("Starting ops server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops server shutdown: %w", err)
	}

	log.Info().Msg("Ops server stopped")
	return nil
}
