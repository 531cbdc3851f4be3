package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/baiirun/bidtrack/internal/model"
)

// CreateYear adds a year bucket. Adding an existing year is an error.
func (db *DB) CreateYear(ctx context.Context, year int) (*model.Year, error) {
	y := &model.Year{Year: year, CreatedAt: time.Now().Format(time.RFC3339)}
	id, err := insertYear(ctx, db, y, false)
	if err != nil {
		return nil, err
	}
	y.ID = id
	return y, nil
}

func insertYear(ctx context.Context, ex execer, y *model.Year, keepID bool) (int64, error) {
	var id any
	if keepID && y.ID != 0 {
		id = y.ID
	}
	result, err := ex.ExecContext(ctx,
		`INSERT INTO years (id, year, created_at) VALUES (?, ?, ?)`, id, y.Year, y.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create year %d: %w", y.Year, err)
	}
	return result.LastInsertId()
}

// ListYears returns all year buckets, newest first.
func (db *DB) ListYears(ctx context.Context) ([]model.Year, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, year, created_at FROM years ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query years: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var years []model.Year
	for rows.Next() {
		var y model.Year
		if err := rows.Scan(&y.ID, &y.Year, &y.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// DeleteYear removes a year bucket and every project filed under it.
// Tasks that referenced those projects are left as orphans.
// Returns the number of projects removed.
func (db *DB) DeleteYear(ctx context.Context, year int) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM years WHERE year = ?`, year).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("year %d: %w (use 'bidtrack year list' to see available years)", year, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get year: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE year = ?`, year)
	if err != nil {
		return 0, fmt.Errorf("failed to delete projects: %w", err)
	}
	removed, _ := result.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM years WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to delete year: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return removed, nil
}
