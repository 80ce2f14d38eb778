package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/internal/database"
	"github.com/oddsflow/predictor/internal/features"
	"github.com/oddsflow/predictor/internal/ml"
	"github.com/oddsflow/predictor/models"
)

var (
	// ErrModelNotLoaded is returned when inference is attempted before any
	// artifact has been loaded. There is no fallback prediction.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrMatchNotFound is returned when the requested match id does not resolve.
	ErrMatchNotFound = errors.New("match not found")
)

// Sink receives a prediction after it has been stored. Sink failures are
// logged and never fail the prediction path.
type Sink interface {
	Publish(ctx context.Context, match models.Match, p models.Prediction) error
}

// Service serves real-time predictions from the current model artifact. The
// artifact handle is its only mutable state; Reload replaces it atomically
// after a retrain.
type Service struct {
	store     models.Store
	artifacts *ml.ArtifactStore
	sinks     []Sink
	logger    zerolog.Logger

	mu      sync.RWMutex
	current *ml.Artifact
}

// New creates an inference service. Call Reload to pick up an artifact.
func New(store models.Store, artifacts *ml.ArtifactStore, sinks ...Sink) *Service {
	return &Service{
		store:     store,
		artifacts: artifacts,
		sinks:     sinks,
		logger:    log.With().Str("component", "inference").Logger(),
	}
}

// Reload loads the current artifact from the artifact store and swaps it in.
// On failure the previously loaded artifact stays active.
func (s *Service) Reload() error {
	artifact, err := s.artifacts.LoadCurrent()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = artifact
	s.mu.Unlock()

	s.logger.Info().Str("model_version", artifact.Version).Msg("Model artifact loaded")
	return nil
}

// ModelVersion returns the loaded artifact's version, if any.
func (s *Service) ModelVersion() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return "", false
	}
	return s.current.Version, true
}

func (s *Service) artifact() (*ml.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrModelNotLoaded
	}
	return s.current, nil
}

// Predict derives the match's feature row with the artifact's persisted
// tables and returns the arg-max outcome with its probability as confidence.
func (s *Service) Predict(ctx context.Context, match models.Match) (string, float64, error) {
	artifact, err := s.artifact()
	if err != nil {
		return "", 0, err
	}
	return predictWith(artifact, match)
}

func predictWith(artifact *ml.Artifact, match models.Match) (string, float64, error) {
	row, err := features.DeriveOne(match, artifact.Tables)
	if err != nil {
		return "", 0, fmt.Errorf("deriving features: %w", err)
	}

	probs := artifact.Pipeline.PredictProba(row.Vector())
	best := 0
	for k, p := range probs {
		if p > probs[best] {
			best = k
		}
	}

	outcome := artifact.Tables.LabelFor(best)
	return outcome, probs[best], nil
}

// ProcessNewMatch reads the match, predicts its outcome and upserts the
// prediction keyed by (match_id, model_version). Repeating the call with the
// same loaded model and unchanged data stores the same single record.
func (s *Service) ProcessNewMatch(ctx context.Context, matchID string) (*models.Prediction, error) {
	// One artifact snapshot for the whole call, so the stored model_version
	// always matches the pipeline that produced the outcome.
	artifact, err := s.artifact()
	if err != nil {
		return nil, err
	}

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
		}
		return nil, fmt.Errorf("reading match: %w", err)
	}

	outcome, confidence, err := predictWith(artifact, *match)
	if err != nil {
		return nil, err
	}

	prediction, err := s.store.UpsertPrediction(ctx, matchID, outcome, confidence, artifact.Version)
	if err != nil {
		return nil, fmt.Errorf("storing prediction: %w", err)
	}

	s.logger.Info().
		Str("match_id", matchID).
		Str("outcome", outcome).
		Float64("confidence", confidence).
		Str("model_version", artifact.Version).
		Msg("Stored prediction")

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, *match, *prediction); err != nil {
			s.logger.Warn().Err(err).Str("match_id", matchID).Msg("Prediction sink failed")
		}
	}

	return prediction, nil
}
