package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/oddsflow/predictor/models"
)

// ErrNotFound is returned when an identifier does not resolve to a record.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection
type DB struct {
	*sql.DB
}

// New opens a PostgreSQL connection and runs migrations. The returned handle
// is the only shared mutable resource of the pipeline; open it once at
// process start and close it at shutdown.
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			sport TEXT NOT NULL,
			team1 TEXT NOT NULL,
			team2 TEXT NOT NULL,
			home_team TEXT,
			start_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			team1_score INTEGER,
			team2_score INTEGER,
			result TEXT,
			team1_rank INTEGER,
			team2_rank INTEGER,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_sport ON matches(sport)`,

		`CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			predicted_outcome TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			model_version TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (match_id, model_version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_match_id ON predictions(match_id)`,

		`CREATE TABLE IF NOT EXISTS sport_categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

const matchColumns = `id, sport, team1, team2, home_team, start_time, status,
	team1_score, team2_score, result, team1_rank, team2_rank, created_at, updated_at`

// CreateMatch stores a new match with a fresh immutable identifier.
func (db *DB) CreateMatch(ctx context.Context, m models.NewMatch) (*models.Match, error) {
	now := time.Now().UTC()
	match := &models.Match{
		ID:        uuid.NewString(),
		Sport:     m.Sport,
		Team1:     m.Team1,
		Team2:     m.Team2,
		HomeTeam:  m.HomeTeam,
		StartTime: m.StartTime,
		Status:    m.Status,
		Score:     m.Score,
		Result:    m.Result,
		Team1Rank: m.Team1Rank,
		Team2Rank: m.Team2Rank,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var team1Score, team2Score *int
	if match.Score != nil {
		team1Score, team2Score = &match.Score.Team1, &match.Score.Team2
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO matches (
			id, sport, team1, team2, home_team, start_time, status,
			team1_score, team2_score, result, team1_rank, team2_rank, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		match.ID, match.Sport, match.Team1, match.Team2, nullString(match.HomeTeam),
		match.StartTime, match.Status, team1Score, team2Score, nullString(match.Result),
		match.Team1Rank, match.Team2Rank, match.CreatedAt, match.UpdatedAt)

	if err != nil {
		return nil, err
	}

	return match, nil
}

// GetMatch retrieves a match by id.
func (db *DB) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	row := db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	return scanMatch(row)
}

// UpdateMatch applies a partial patch: fields not present are unchanged.
// updated_at is bumped on every successful patch.
func (db *DB) UpdateMatch(ctx context.Context, id string, patch models.MatchPatch) (*models.Match, error) {
	sets := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Score != nil {
		add("team1_score", patch.Score.Team1)
		add("team2_score", patch.Score.Team2)
	}
	if patch.Result != nil {
		add("result", *patch.Result)
	}
	if patch.Team1Rank != nil {
		add("team1_rank", *patch.Team1Rank)
	}
	if patch.Team2Rank != nil {
		add("team2_rank", *patch.Team2Rank)
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE matches SET %s WHERE id = $%d RETURNING `+matchColumns,
		strings.Join(sets, ", "), len(args))

	row := db.QueryRowContext(ctx, query, args...)
	return scanMatch(row)
}

// DeleteMatch removes a match. Hard removal, no tombstone.
func (db *DB) DeleteMatch(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMatches returns every stored match ordered by creation time. Training
// runs use this as their dataset snapshot.
func (db *DB) ListMatches(ctx context.Context) ([]models.Match, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *match)
	}
	return matches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	var homeTeam, result sql.NullString
	var team1Score, team2Score, team1Rank, team2Rank sql.NullInt64

	err := row.Scan(
		&m.ID, &m.Sport, &m.Team1, &m.Team2, &homeTeam, &m.StartTime, &m.Status,
		&team1Score, &team2Score, &result, &team1Rank, &team2Rank, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if homeTeam.Valid {
		m.HomeTeam = homeTeam.String
	}
	if result.Valid {
		m.Result = result.String
	}
	if team1Score.Valid && team2Score.Valid {
		m.Score = &models.Score{Team1: int(team1Score.Int64), Team2: int(team2Score.Int64)}
	}
	if team1Rank.Valid {
		v := int(team1Rank.Int64)
		m.Team1Rank = &v
	}
	if team2Rank.Valid {
		v := int(team2Rank.Int64)
		m.Team2Rank = &v
	}

	return &m, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
