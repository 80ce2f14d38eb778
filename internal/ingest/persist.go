package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/models"
)

// PersistResults writes every raw record from a fan-out into the store as a
// Match and returns per-provider stored counts. A record that fails to
// convert or store is skipped and logged; one bad record does not abort the
// rest of the batch.
func PersistResults(ctx context.Context, store models.Store, results map[string][]models.RawMatch) map[string]int {
	logger := log.With().Str("component", "ingest_persist").Logger()
	stored := make(map[string]int)

	for provider, matches := range results {
		for _, raw := range matches {
			nm, err := rawToNewMatch(raw)
			if err != nil {
				logger.Warn().Err(err).Str("provider", provider).Msg("Skipping malformed record")
				continue
			}
			if _, err := store.CreateMatch(ctx, nm); err != nil {
				logger.Error().Err(err).Str("provider", provider).Msg("Storing match failed")
				continue
			}
			stored[provider]++
		}
	}

	return stored
}

func rawToNewMatch(raw models.RawMatch) (models.NewMatch, error) {
	if len(raw.Teams) != 2 {
		return models.NewMatch{}, fmt.Errorf("expected 2 teams, got %d", len(raw.Teams))
	}

	status := raw.Status
	if status == "" {
		status = models.StatusScheduled
	}

	return models.NewMatch{
		Sport:     raw.Sport,
		Team1:     raw.Teams[0],
		Team2:     raw.Teams[1],
		HomeTeam:  raw.HomeTeam,
		StartTime: raw.StartTime,
		Status:    status,
		Score:     raw.Score,
		Result:    raw.Result,
		Team1Rank: raw.Team1Rank,
		Team2Rank: raw.Team2Rank,
	}, nil
}
