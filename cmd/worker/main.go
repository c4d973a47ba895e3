// Package main provides the dataset importer. It parses the WHO workbook,
// writes it to Postgres and asks the API instances to reload.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/airquality/who"
	"github.com/breatheroute/whoair/internal/api/models"
	"github.com/breatheroute/whoair/internal/api/response"
	"github.com/breatheroute/whoair/internal/database"
	"github.com/breatheroute/whoair/internal/resilience"
	"github.com/breatheroute/whoair/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "whoair-worker").
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting dataset importer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sourceCfg := who.SourceConfigFromEnv()
	source, err := who.NewSource(sourceCfg, resilience.NewRegistry(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid workbook source")
	}

	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	var notifier worker.Notifier
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	topic := os.Getenv("PUBSUB_TOPIC")
	if projectID != "" && topic != "" {
		publisher, err := worker.NewPublisher(ctx, projectID, topic, "whoair-worker")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub publisher")
		}
		defer publisher.Close()
		notifier = publisher
	}

	importer := worker.NewImporter(worker.ImporterConfig{
		Source:   source,
		Store:    airquality.NewPostgresSource(pool),
		Notifier: notifier,
		Logger:   log,
	})

	timeout := worker.ReloadConfigFromEnv().Timeout
	runImport := func() error {
		importCtx, importCancel := context.WithTimeout(ctx, timeout)
		defer importCancel()
		_, err := importer.Import(importCtx)
		return err
	}

	// Without an interval the worker runs as a one-shot job.
	interval, _ := time.ParseDuration(os.Getenv("IMPORT_INTERVAL"))
	if interval <= 0 {
		if err := runImport(); err != nil {
			log.Error().Err(err).Msg("import failed")
			os.Exit(1) //nolint:gocritic // deferred cleanup is best-effort
		}
		return
	}

	server := healthServer(getEnvOrDefault("APP_PORT", "8080"))
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := runImport(); err != nil {
				log.Error().Err(err).Msg("import failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func healthServer(port string) *http.Server {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, models.Health{
			Status:  models.HealthStatusOK,
			Time:    models.Timestamp(time.Now()),
			Details: map[string]interface{}{"version": Version},
		})
	})

	return &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
