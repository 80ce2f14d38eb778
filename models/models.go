package models

import (
	"math"
	"time"
)

// Match status values.
const (
	StatusScheduled = "Scheduled"
	StatusLive      = "Live"
	StatusFinished  = "Finished"
)

// Match outcome labels. A match result and a predicted outcome draw from
// the same label set.
const (
	OutcomeTeam1Win = "team1_win"
	OutcomeTeam2Win = "team2_win"
	OutcomeDraw     = "draw"
)

// Score holds the per-team score of a live or finished match.
type Score struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Match is the persisted record of one sports event. Identity is assigned
// by the store on create and never changes afterwards.
type Match struct {
	ID        string    `json:"id"`
	Sport     string    `json:"sport"`
	Team1     string    `json:"team1"`
	Team2     string    `json:"team2"`
	HomeTeam  string    `json:"home_team,omitempty"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
	Score     *Score    `json:"score,omitempty"`
	Result    string    `json:"result,omitempty"`
	Team1Rank *int      `json:"team1_rank,omitempty"`
	Team2Rank *int      `json:"team2_rank,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMatch carries the caller-supplied fields of a match create.
type NewMatch struct {
	Sport     string    `json:"sport"`
	Team1     string    `json:"team1"`
	Team2     string    `json:"team2"`
	HomeTeam  string    `json:"home_team,omitempty"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
	Score     *Score    `json:"score,omitempty"`
	Result    string    `json:"result,omitempty"`
	Team1Rank *int      `json:"team1_rank,omitempty"`
	Team2Rank *int      `json:"team2_rank,omitempty"`
}

// MatchPatch is a partial update of a match. Nil fields are left unchanged.
type MatchPatch struct {
	Status    *string `json:"status,omitempty"`
	Score     *Score  `json:"score,omitempty"`
	Result    *string `json:"result,omitempty"`
	Team1Rank *int    `json:"team1_rank,omitempty"`
	Team2Rank *int    `json:"team2_rank,omitempty"`
}

// Prediction is one stored model output for a match. The store keeps at
// most one row per (match_id, model_version): re-predicting with the same
// model overwrites in place, a retrained model appends a new row.
type Prediction struct {
	ID               string    `json:"id"`
	MatchID          string    `json:"match_id"`
	PredictedOutcome string    `json:"predicted_outcome"`
	Confidence       float64   `json:"confidence"`
	ModelVersion     string    `json:"model_version"`
	CreatedAt        time.Time `json:"created_at"`
}

// SportCategory is a named grouping of matches, associated by sport name.
type SportCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SportCategoryPatch is a partial update of a sport category.
type SportCategoryPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// RawMatch is the wire record a provider returns before it is persisted.
type RawMatch struct {
	Sport     string    `json:"sport"`
	Teams     []string  `json:"teams"`
	HomeTeam  string    `json:"home_team"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
	Score     *Score    `json:"score,omitempty"`
	Result    string    `json:"result,omitempty"`
	Team1Rank *int      `json:"team1_rank,omitempty"`
	Team2Rank *int      `json:"team2_rank,omitempty"`
}

// FeatureRow is the flat numeric representation of one match. Categorical
// fields carry encoder codes, missing values carry NaN until imputation.
// Label is the encoded actual outcome and is only meaningful on training rows.
type FeatureRow struct {
	Sport          float64
	Team1          float64
	Team2          float64
	Team1Rank      float64
	Team2Rank      float64
	Team1WinRate   float64
	Team2WinRate   float64
	RankDifference float64
	IsHomeTeam1    float64
	Label          int
}

// NumFeatures is the width of a FeatureRow vector.
const NumFeatures = 9

// Vector returns the row's features in the fixed order the pipeline is
// trained on. The label is not part of the vector.
func (r FeatureRow) Vector() []float64 {
	return []float64{
		r.Sport,
		r.Team1,
		r.Team2,
		r.Team1Rank,
		r.Team2Rank,
		r.Team1WinRate,
		r.Team2WinRate,
		r.RankDifference,
		r.IsHomeTeam1,
	}
}

// Missing marks a feature value as absent until imputation fills it.
func Missing() float64 { return math.NaN() }
