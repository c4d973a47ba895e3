// Package main provides the entrypoint for the WHO air quality dashboard API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/airquality/who"
	"github.com/breatheroute/whoair/internal/api"
	"github.com/breatheroute/whoair/internal/api/middleware"
	"github.com/breatheroute/whoair/internal/database"
	"github.com/breatheroute/whoair/internal/plot"
	"github.com/breatheroute/whoair/internal/resilience"
	"github.com/breatheroute/whoair/internal/telemetry"
	"github.com/breatheroute/whoair/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "whoair-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting WHO air quality API")

	port := getEnvOrDefault("APP_PORT", "8080")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Float64("sample_ratio", telemetryCfg.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	loadMetrics, err := airquality.NewLoadMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dataset metrics")
	}

	// Dataset source
	upstreams := resilience.NewRegistry()
	var (
		source airquality.Source
		pool   *pgxpool.Pool
	)
	sourceCfg := who.SourceConfigFromEnv()
	if sourceCfg.Kind == "postgres" {
		dbConfig := database.ConfigFromEnv()
		pool, err = database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
		source = airquality.NewPostgresSource(pool)
	} else {
		source, err = who.NewSource(sourceCfg, upstreams, log)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid dataset source")
		}
	}

	service := airquality.NewService(airquality.ServiceConfig{
		Source:  source,
		Logger:  log,
		Metrics: loadMetrics,
	})

	reloadCfg := worker.ReloadConfigFromEnv()
	initCtx, initCancel := context.WithTimeout(ctx, reloadCfg.Timeout)
	err = service.Reload(initCtx)
	initCancel()
	if err != nil {
		log.Fatal().Err(err).Str("source", source.Name()).Msg("failed to load dataset")
	}
	log.Info().
		Str("source", source.Name()).
		Int("records", service.Status().Records).
		Msg("dataset loaded")

	// Scheduled and on-demand reloads
	reloadJob := worker.NewReloadJob(worker.ReloadJobConfig{
		Config:   reloadCfg,
		Logger:   log.With().Str("component", "reload").Logger(),
		Reloader: service,
	})
	go reloadJob.Start(ctx)

	var pubsubHandler *worker.PubSubHandler
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		pubsubHandler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			ReloadJob:        reloadJob,
			Logger:           log.With().Str("component", "pubsub").Logger(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer pubsubHandler.Close()

		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	renderer := plot.NewRenderer(plot.Config{
		Width:  getEnvInt("CHART_WIDTH", 0),
		Height: getEnvInt("CHART_HEIGHT", 0),
	})

	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Service:     service,
		Renderer:    renderer,
		Upstreams:   upstreams,
		RequireTLS:  os.Getenv("REQUIRE_TLS") == "true",
		CacheMaxAge: getEnvDuration("CACHE_MAX_AGE", 5*time.Minute),
	}
	if pool != nil {
		routerCfg.Database = pool
	}
	router := api.NewRouter(routerCfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d >= 0 {
		return d
	}
	return defaultValue
}
