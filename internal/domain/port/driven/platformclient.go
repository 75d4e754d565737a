package driven

import (
	"context"

	"github.com/ericfisherdev/ramn/internal/domain/model"
)

// PlatformClient defines the driven port for the game platform's
// authenticated endpoints.
type PlatformClient interface {
	// AuthTicket exchanges the long-lived secret for a one-time ticket.
	// Returns errors wrapping ErrMissingCSRFToken or ErrMissingTicket.
	AuthTicket(ctx context.Context, secret, placeID string) (string, error)

	// LaunchURI builds the deep-link launch descriptor for ticket and place.
	LaunchURI(ticket, placeID string) string

	// ResolveUsername returns the username owning secret, or
	// ErrUsernameUnresolved.
	ResolveUsername(ctx context.Context, secret string) (string, error)
}

// PlaceMetadataSource is one strategy for resolving game metadata. A lookup
// succeeds only when it returns a non-empty name.
type PlaceMetadataSource interface {
	Name() string
	LookupPlace(ctx context.Context, placeID string) (model.PlaceInfo, error)
}

// ThumbnailSource resolves a game icon URL from a universe id.
type ThumbnailSource interface {
	GameIcon(ctx context.Context, universeID string) (string, error)
}
