package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oddsflow/predictor/models"
)

// CreateSportCategory stores a new sport category.
func (db *DB) CreateSportCategory(ctx context.Context, name, description string) (*models.SportCategory, error) {
	now := time.Now().UTC()
	c := &models.SportCategory{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sport_categories (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)

	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetSportCategory retrieves a sport category by id.
func (db *DB) GetSportCategory(ctx context.Context, id string) (*models.SportCategory, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM sport_categories WHERE id = $1
	`, id)
	return scanCategory(row)
}

// UpdateSportCategory applies a partial patch and bumps updated_at.
func (db *DB) UpdateSportCategory(ctx context.Context, id string, patch models.SportCategoryPatch) (*models.SportCategory, error) {
	sets := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE sport_categories SET %s WHERE id = $%d
		RETURNING id, name, description, created_at, updated_at
	`, strings.Join(sets, ", "), len(args))

	row := db.QueryRowContext(ctx, query, args...)
	return scanCategory(row)
}

// DeleteSportCategory removes a sport category.
func (db *DB) DeleteSportCategory(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM sport_categories WHERE id = $1`, id)
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

// ListSportCategories returns all categories ordered by name.
func (db *DB) ListSportCategories(ctx context.Context) ([]models.SportCategory, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM sport_categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.SportCategory
	for rows.Next() {
		var c models.SportCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func scanCategory(row rowScanner) (*models.SportCategory, error) {
	var c models.SportCategory
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
