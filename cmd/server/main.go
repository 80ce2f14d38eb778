package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/internal/config"
	"github.com/oddsflow/predictor/internal/database"
	"github.com/oddsflow/predictor/internal/inference"
	"github.com/oddsflow/predictor/internal/ingest"
	"github.com/oddsflow/predictor/internal/ml"
	"github.com/oddsflow/predictor/internal/notify"
	"github.com/oddsflow/predictor/internal/provider"
	"github.com/oddsflow/predictor/internal/publish"
	"github.com/oddsflow/predictor/internal/server"
	"github.com/oddsflow/predictor/models"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting prediction server")

	// 3. Connect to the store
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// 4. Open the artifact store
	artifacts, err := ml.NewArtifactStore(cfg.ArtifactDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open artifact store")
	}

	// 5. Optional prediction sinks
	sinks := buildSinks(ctx, cfg)

	// 6. Inference service; a missing artifact is not fatal, the server
	// starts and returns 503 on predict until a model is trained.
	svc := inference.New(db, artifacts, sinks...)
	if err := svc.Reload(); err != nil {
		if errors.Is(err, ml.ErrNoArtifact) {
			log.Warn().Msg("No model artifact yet, prediction endpoints unavailable until training")
		} else {
			log.Fatal().Err(err).Msg("Failed to load model artifact")
		}
	}

	// 7. Aggregator behind the on-demand ingestion endpoint
	aggregator := ingest.New(buildProviders(cfg), time.Duration(cfg.ProviderTimeout)*time.Second)

	// 8. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.New(db, svc, aggregator).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

// buildSinks wires the optional Redis and Telegram prediction sinks. An
// unconfigured sink is skipped, a configured one that cannot connect is fatal.
func buildSinks(ctx context.Context, cfg *config.Config) []inference.Sink {
	var sinks []inference.Sink

	if cfg.RedisURL != "" {
		publisher, err := publish.NewPublisher(ctx, cfg.RedisURL, cfg.PredictionsChannel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Str("channel", cfg.PredictionsChannel).Msg("Redis prediction publishing enabled")
		sinks = append(sinks, publisher)
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram notifier")
		}
		log.Info().Int64("chat_id", cfg.TelegramChatID).Msg("Telegram notifications enabled")
		sinks = append(sinks, notifier)
	}

	return sinks
}

// buildProviders creates one client per configured provider.
func buildProviders(cfg *config.Config) []models.ProviderClient {
	clients := make([]models.ProviderClient, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		clients = append(clients, provider.NewClient(provider.ClientOptions{
			Name:            p.Name,
			BaseURL:         p.BaseURL,
			APIKey:          p.APIKey,
			RequestTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
			RequestsPerSec:  cfg.RequestsPerSec,
			MaxRetryTimeout: time.Duration(cfg.MaxRetryTimeout) * time.Second,
		}))
	}
	return clients
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}
