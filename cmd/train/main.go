package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/internal/config"
	"github.com/oddsflow/predictor/internal/database"
	"github.com/oddsflow/predictor/internal/features"
	"github.com/oddsflow/predictor/internal/ml"
	"github.com/oddsflow/predictor/internal/train"
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
	log.Info().Msg("Starting training run")

	// 3. Connect to the store
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// 4. Load matches and derive the training set
	matches, err := db.ListMatches(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load matches")
	}
	log.Info().Int("matches", len(matches)).Msg("Loaded matches")

	set, err := features.Derive(matches, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Feature derivation failed")
	}
	log.Info().Int("rows", len(set.Rows)).Msg("Training set derived")

	// 5. Train with grid-search cross-validation
	artifact, err := train.Run(set, train.Options{
		TestFraction: cfg.TestFraction,
		CVFolds:      cfg.CVFolds,
		Seed:         cfg.Seed,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}

	eval := artifact.Evaluation
	log.Info().
		Str("model_version", artifact.Version).
		Float64("accuracy", eval.Accuracy).
		Float64("cv_mean", eval.CVMean).
		Float64("learning_rate", eval.BestParams.LearningRate).
		Int("epochs", eval.BestParams.Epochs).
		Float64("l2", eval.BestParams.L2).
		Int("train_size", eval.TrainSize).
		Int("test_size", eval.TestSize).
		Msg("Training completed")

	for _, m := range eval.Report {
		log.Info().
			Str("label", m.Label).
			Float64("precision", m.Precision).
			Float64("recall", m.Recall).
			Int("support", m.Support).
			Msg("Class metrics")
	}

	// 6. Persist the artifact and swap the current pointer
	artifacts, err := ml.NewArtifactStore(cfg.ArtifactDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open artifact store")
	}
	if err := artifacts.Save(artifact); err != nil {
		log.Fatal().Err(err).Msg("Failed to save artifact")
	}

	log.Info().Str("model_version", artifact.Version).Str("dir", cfg.ArtifactDir).Msg("Artifact saved")
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
