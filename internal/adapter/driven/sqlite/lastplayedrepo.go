package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LastPlayedStore = (*LastPlayedRepo)(nil)

// LastPlayedRepo is the SQLite implementation of the LastPlayedStore port
// interface. played_at is stored as Unix seconds.
type LastPlayedRepo struct {
	db *DB
}

// NewLastPlayedRepo creates a new LastPlayedRepo backed by the given DB.
func NewLastPlayedRepo(db *DB) *LastPlayedRepo {
	return &LastPlayedRepo{db: db}
}

// Record inserts the entry or overwrites every field of an existing one.
func (r *LastPlayedRepo) Record(ctx context.Context, entry model.LastPlayed) error {
	const query = `INSERT INTO last_played (username, place_id, name, icon_url, played_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username, place_id) DO UPDATE SET
			name = excluded.name,
			icon_url = excluded.icon_url,
			played_at = excluded.played_at`

	playedAt := entry.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		entry.Username, entry.PlaceID, entry.Name, entry.IconURL, playedAt.Unix())
	if err != nil {
		return fmt.Errorf("record last played %s/%s: %w", entry.Username, entry.PlaceID, err)
	}
	return nil
}

// Touch bumps played_at, inserting an entry with unknown metadata when the
// place has not been played by the account before.
func (r *LastPlayedRepo) Touch(ctx context.Context, username, placeID string, at time.Time) error {
	const query = `INSERT INTO last_played (username, place_id, name, icon_url, played_at)
		VALUES (?, ?, ?, '', ?)
		ON CONFLICT(username, place_id) DO UPDATE SET played_at = excluded.played_at`

	_, err := r.db.Writer.ExecContext(ctx, query, username, placeID, model.UnknownPlaceName, at.Unix())
	if err != nil {
		return fmt.Errorf("touch last played %s/%s: %w", username, placeID, err)
	}
	return nil
}

// UpdateMetadata replaces the name of an existing entry, and its icon when
// iconURL is non-empty. A missing entry is left missing.
func (r *LastPlayedRepo) UpdateMetadata(ctx context.Context, username, placeID, name, iconURL string) error {
	const query = `UPDATE last_played SET name = ?, icon_url = COALESCE(NULLIF(?, ''), icon_url)
		WHERE username = ? AND place_id = ?`

	_, err := r.db.Writer.ExecContext(ctx, query, name, iconURL, username, placeID)
	if err != nil {
		return fmt.Errorf("update metadata %s/%s: %w", username, placeID, err)
	}
	return nil
}

// List returns up to limit entries for username, most recent first. A
// non-positive limit returns every entry.
func (r *LastPlayedRepo) List(ctx context.Context, username string, limit int) ([]model.LastPlayed, error) {
	if limit <= 0 {
		limit = -1
	}

	const query = `SELECT username, place_id, COALESCE(name, ''), COALESCE(icon_url, ''), COALESCE(played_at, 0)
		FROM last_played WHERE username = ? ORDER BY played_at DESC, place_id LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("list last played for %s: %w", username, err)
	}
	defer rows.Close()

	var entries []model.LastPlayed
	for rows.Next() {
		entry, err := scanLastPlayed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan last played: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last played: %w", err)
	}

	return entries, nil
}

// Delete removes one entry.
func (r *LastPlayedRepo) Delete(ctx context.Context, username, placeID string) error {
	const query = `DELETE FROM last_played WHERE username = ? AND place_id = ?`

	_, err := r.db.Writer.ExecContext(ctx, query, username, placeID)
	if err != nil {
		return fmt.Errorf("delete last played %s/%s: %w", username, placeID, err)
	}
	return nil
}

func scanLastPlayed(s scanner) (model.LastPlayed, error) {
	var (
		entry    model.LastPlayed
		playedAt sql.NullInt64
	)
	if err := s.Scan(&entry.Username, &entry.PlaceID, &entry.Name, &entry.IconURL, &playedAt); err != nil {
		return entry, err
	}
	entry.PlayedAt = time.Unix(playedAt.Int64, 0)
	return entry, nil
}
