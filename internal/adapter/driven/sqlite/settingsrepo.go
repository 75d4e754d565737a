package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

// SettingsRepo is the SQLite implementation of the SettingsStore port
// interface. Toggles are stored as "1" or "0" under their setting keys.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo backed by the given DB.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the stored settings. Missing keys read as false.
func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	const query = `SELECT key, COALESCE(value, '') FROM settings WHERE key IN (?, ?)`

	rows, err := r.db.Reader.QueryContext(ctx, query, model.SettingMultiInstance, model.SettingHideUsernames)
	if err != nil {
		return model.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	defer rows.Close()

	var settings model.Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return model.Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case model.SettingMultiInstance:
			settings.MultiInstance = value == "1"
		case model.SettingHideUsernames:
			settings.HideUsernames = value == "1"
		}
	}
	if err := rows.Err(); err != nil {
		return model.Settings{}, fmt.Errorf("iterate settings: %w", err)
	}

	return settings, nil
}

// Set writes both toggles in one transaction.
func (r *SettingsRepo) Set(ctx context.Context, settings model.Settings) error {
	values := map[string]bool{
		model.SettingMultiInstance: settings.MultiInstance,
		model.SettingHideUsernames: settings.HideUsernames,
	}

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		const query = `INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		for key, on := range values {
			if _, err := tx.ExecContext(ctx, query, key, flag(on)); err != nil {
				return fmt.Errorf("write %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set settings: %w", err)
	}
	return nil
}

func flag(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
