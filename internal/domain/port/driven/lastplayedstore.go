package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/ramn/internal/domain/model"
)

// LastPlayedStore defines the driven port for per-account launch history.
type LastPlayedStore interface {
	// Record inserts or fully overwrites the entry for (username, place),
	// played_at included. It is the store's overwrite primitive for callers
	// that hold a complete entry; the launch path uses Touch and
	// UpdateMetadata so resolved metadata is never clobbered.
	Record(ctx context.Context, entry model.LastPlayed) error

	// Touch bumps played_at for (username, place), inserting an entry with
	// unknown metadata when none exists. Existing metadata is kept.
	Touch(ctx context.Context, username, placeID string, at time.Time) error

	// UpdateMetadata replaces name and icon of an existing entry. An empty
	// iconURL keeps the stored icon.
	UpdateMetadata(ctx context.Context, username, placeID, name, iconURL string) error

	// List returns up to limit entries for username, most recent first.
	List(ctx context.Context, username string, limit int) ([]model.LastPlayed, error)

	// Delete removes one entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, username, placeID string) error
}
