package driven

import (
	"context"

	"github.com/ericfisherdev/ramn/internal/domain/model"
)

// SettingsStore defines the driven port for the feature toggles.
type SettingsStore interface {
	// Get returns the stored settings; missing keys default to false.
	Get(ctx context.Context) (model.Settings, error)
	Set(ctx context.Context, settings model.Settings) error
}
