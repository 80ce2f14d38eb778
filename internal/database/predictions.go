package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oddsflow/predictor/models"
)

const predictionColumns = `id, match_id, predicted_outcome, confidence, model_version, created_at`

// CreatePrediction appends a prediction record for a match.
func (db *DB) CreatePrediction(ctx context.Context, matchID, outcome string, confidence float64, modelVersion string) (*models.Prediction, error) {
	p := &models.Prediction{
		ID:               uuid.NewString(),
		MatchID:          matchID,
		PredictedOutcome: outcome,
		Confidence:       confidence,
		ModelVersion:     modelVersion,
		CreatedAt:        time.Now().UTC(),
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO predictions (id, match_id, predicted_outcome, confidence, model_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.MatchID, p.PredictedOutcome, p.Confidence, p.ModelVersion, p.CreatedAt)

	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPrediction retrieves a prediction by id.
func (db *DB) GetPrediction(ctx context.Context, id string) (*models.Prediction, error) {
	row := db.QueryRowContext(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE id = $1`, id)

	var p models.Prediction
	err := row.Scan(&p.ID, &p.MatchID, &p.PredictedOutcome, &p.Confidence, &p.ModelVersion, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetPredictionsForMatch returns every prediction ever recorded for a match,
// ordered by creation time. The full history is kept so drift across model
// versions stays auditable.
func (db *DB) GetPredictionsForMatch(ctx context.Context, matchID string) ([]models.Prediction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+predictionColumns+` FROM predictions
		WHERE match_id = $1
		ORDER BY created_at
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []models.Prediction
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(&p.ID, &p.MatchID, &p.PredictedOutcome, &p.Confidence, &p.ModelVersion, &p.CreatedAt); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// UpsertPrediction stores a prediction keyed by (match_id, model_version):
// a repeat prediction from the same model overwrites in place, so the call
// is idempotent. The write is a single statement and therefore never leaves
// a partially updated row visible to readers.
func (db *DB) UpsertPrediction(ctx context.Context, matchID, outcome string, confidence float64, modelVersion string) (*models.Prediction, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO predictions (id, match_id, predicted_outcome, confidence, model_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, model_version)
		DO UPDATE SET
			predicted_outcome = EXCLUDED.predicted_outcome,
			confidence = EXCLUDED.confidence
		RETURNING `+predictionColumns,
		uuid.NewString(), matchID, outcome, confidence, modelVersion, time.Now().UTC())

	var p models.Prediction
	if err := row.Scan(&p.ID, &p.MatchID, &p.PredictedOutcome, &p.Confidence, &p.ModelVersion, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
