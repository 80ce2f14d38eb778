package features

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/models"
)

// ErrMissingRequiredField is returned when a match lacks a field the feature
// table cannot be built without. The home team is required upstream data, not
// something derivation may invent.
var ErrMissingRequiredField = errors.New("missing required field")

// TrainingSet is the labeled feature table derived from one dataset snapshot,
// together with the lookup tables that must ship inside the model artifact.
type TrainingSet struct {
	Rows   []models.FeatureRow
	Tables Tables
}

// Derive builds the labeled training table from a snapshot of matches and
// their recorded predictions. Only finished matches with a result become
// rows. Win rates are snapshot aggregates, not running statistics; the
// predictions are only consulted for drift coverage reporting.
func Derive(matches []models.Match, predictions []models.Prediction) (*TrainingSet, error) {
	finished := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m.Status == models.StatusFinished && m.Result != "" {
			finished = append(finished, m)
		}
	}

	for _, m := range finished {
		if m.HomeTeam == "" {
			return nil, fmt.Errorf("%w: home_team on match %s", ErrMissingRequiredField, m.ID)
		}
	}

	winRates := computeWinRates(finished)
	tables := fitTables(finished, winRates)

	rows := make([]models.FeatureRow, 0, len(finished))
	for _, m := range finished {
		row := buildRow(m, tables)
		label, ok := tables.LabelIndex(m.Result)
		if !ok {
			// Labels were fit from this same snapshot, so this cannot happen.
			return nil, fmt.Errorf("unencodable result %q on match %s", m.Result, m.ID)
		}
		row.Label = label
		rows = append(rows, row)
	}

	withPredictions := 0
	predicted := make(map[string]struct{}, len(predictions))
	for _, p := range predictions {
		predicted[p.MatchID] = struct{}{}
	}
	for _, m := range finished {
		if _, ok := predicted[m.ID]; ok {
			withPredictions++
		}
	}
	log.Debug().
		Str("component", "features").
		Int("rows", len(rows)).
		Int("with_prior_predictions", withPredictions).
		Msg("Derived training set")

	return &TrainingSet{Rows: rows, Tables: tables}, nil
}

// DeriveOne builds the unlabeled feature row for a single match using the
// artifact's persisted tables. Categories unseen at training time map to the
// reserved unknown code; unseen teams get NaN win rates so the training-time
// imputation means apply, same policy as missing ranks.
func DeriveOne(m models.Match, tables Tables) (models.FeatureRow, error) {
	if m.HomeTeam == "" {
		return models.FeatureRow{}, fmt.Errorf("%w: home_team on match %s", ErrMissingRequiredField, m.ID)
	}
	return buildRow(m, tables), nil
}

func buildRow(m models.Match, tables Tables) models.FeatureRow {
	row := models.FeatureRow{
		Sport:          float64(tables.Sport.Encode(m.Sport)),
		Team1:          float64(tables.Team.Encode(m.Team1)),
		Team2:          float64(tables.Team.Encode(m.Team2)),
		Team1Rank:      rankValue(m.Team1Rank),
		Team2Rank:      rankValue(m.Team2Rank),
		Team1WinRate:   winRate(tables.WinRates, m.Team1),
		Team2WinRate:   winRate(tables.WinRates, m.Team2),
		RankDifference: models.Missing(),
		IsHomeTeam1:    0,
	}

	if m.Team1Rank != nil && m.Team2Rank != nil {
		row.RankDifference = float64(*m.Team1Rank - *m.Team2Rank)
	}
	if m.Team1 == m.HomeTeam {
		row.IsHomeTeam1 = 1
	}

	return row
}

// computeWinRates aggregates, per team, wins / matches played over the
// snapshot. Draws count as played, not won.
func computeWinRates(finished []models.Match) map[string]float64 {
	wins := make(map[string]int)
	played := make(map[string]int)

	for _, m := range finished {
		played[m.Team1]++
		played[m.Team2]++
		switch m.Result {
		case models.OutcomeTeam1Win:
			wins[m.Team1]++
		case models.OutcomeTeam2Win:
			wins[m.Team2]++
		}
	}

	rates := make(map[string]float64, len(played))
	for team, n := range played {
		rates[team] = float64(wins[team]) / float64(n)
	}
	return rates
}

func fitTables(finished []models.Match, winRates map[string]float64) Tables {
	sports := make([]string, 0, len(finished))
	teams := make([]string, 0, 3*len(finished))
	labelSet := make(map[string]struct{})

	for _, m := range finished {
		sports = append(sports, m.Sport)
		teams = append(teams, m.Team1, m.Team2, m.HomeTeam)
		labelSet[m.Result] = struct{}{}
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	return Tables{
		Sport:    FitEncoder(sports),
		Team:     FitEncoder(teams),
		Labels:   labels,
		WinRates: winRates,
	}
}

func rankValue(rank *int) float64 {
	if rank == nil {
		return models.Missing()
	}
	return float64(*rank)
}

func winRate(rates map[string]float64, team string) float64 {
	if rate, ok := rates[team]; ok {
		return rate
	}
	return models.Missing()
}
