package models

import (
	"context"
	"time"
)

// ProviderClient is the uniform contract to one external data source.
// Implementations differ only in authentication and base address.
type ProviderClient interface {
	Name() string
	FetchLive(ctx context.Context) ([]RawMatch, error)
	FetchHistorical(ctx context.Context, start, end time.Time) ([]RawMatch, error)
}

// Store is the persistence boundary for matches, predictions and sport
// categories. All operations are single-record and atomic at the store level.
type Store interface {
	CreateMatch(ctx context.Context, m NewMatch) (*Match, error)
	GetMatch(ctx context.Context, id string) (*Match, error)
	UpdateMatch(ctx context.Context, id string, patch MatchPatch) (*Match, error)
	DeleteMatch(ctx context.Context, id string) error
	ListMatches(ctx context.Context) ([]Match, error)

	CreatePrediction(ctx context.Context, matchID, outcome string, confidence float64, modelVersion string) (*Prediction, error)
	GetPrediction(ctx context.Context, id string) (*Prediction, error)
	GetPredictionsForMatch(ctx context.Context, matchID string) ([]Prediction, error)
	UpsertPrediction(ctx context.Context, matchID, outcome string, confidence float64, modelVersion string) (*Prediction, error)

	CreateSportCategory(ctx context.Context, name, description string) (*SportCategory, error)
	GetSportCategory(ctx context.Context, id string) (*SportCategory, error)
	UpdateSportCategory(ctx context.Context, id string, patch SportCategoryPatch) (*SportCategory, error)
	DeleteSportCategory(ctx context.Context, id string) error
	ListSportCategories(ctx context.Context) ([]SportCategory, error)
}
