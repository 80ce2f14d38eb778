package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/internal/config"
	"github.com/oddsflow/predictor/internal/database"
	"github.com/oddsflow/predictor/internal/ingest"
	"github.com/oddsflow/predictor/internal/provider"
	"github.com/oddsflow/predictor/models"
)

func main() {
	var (
		historical = flag.Bool("historical", false, "fetch a historical date range instead of live matches")
		from       = flag.String("from", "", "start date for -historical (YYYY-MM-DD)")
		to         = flag.String("to", "", "end date for -historical (YYYY-MM-DD)")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting ingest run")

	// 3. Connect to the store
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// 4. Build provider clients and the aggregator
	providers := buildProviders(cfg)
	if len(providers) == 0 {
		log.Fatal().Msg("No providers configured")
	}
	aggregator := ingest.New(providers, time.Duration(cfg.ProviderTimeout)*time.Second)

	// 5. Fetch
	var (
		results map[string][]models.RawMatch
		report  ingest.Report
	)
	if *historical {
		start, end, err := parseRange(*from, *to)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -from/-to range")
		}
		log.Info().Time("from", start).Time("to", end).Msg("Fetching historical matches")
		results, report = aggregator.FetchAllHistorical(ctx, start, end)
	} else {
		log.Info().Msg("Fetching live matches")
		results, report = aggregator.FetchAllLive(ctx)
	}

	for _, f := range report.Failures {
		log.Warn().Err(f.Err).Str("provider", f.Provider).Msg("Provider failed this run")
	}

	// 6. Persist whatever arrived
	stored := ingest.PersistResults(ctx, db, results)

	total := 0
	for provider, n := range stored {
		log.Info().Str("provider", provider).Int("stored", n).Msg("Provider results persisted")
		total += n
	}
	// An all-fail run stores nothing but is still a normal completion:
	// collection is best effort and no data is a valid terminal state.
	log.Info().
		Int("providers_ok", len(report.Succeeded)).
		Int("providers_failed", len(report.Failures)).
		Int("matches_stored", total).
		Msg("Ingest run completed")
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

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
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
