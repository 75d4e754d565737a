package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// MetadataResolver resolves game metadata by trying an ordered list of
// sources. The first source that returns a name wins; nothing carries over
// between attempts. Resolution never fails: when every source misses the
// result is the unknown-place sentinel with no icon.
type MetadataResolver struct {
	sources []driven.PlaceMetadataSource
	icons   driven.ThumbnailSource
	metrics Recorder
}

// NewMetadataResolver creates a MetadataResolver. icons may be nil to skip
// icon lookups.
func NewMetadataResolver(sources []driven.PlaceMetadataSource, icons driven.ThumbnailSource, metrics Recorder) *MetadataResolver {
	return &MetadataResolver{
		sources: sources,
		icons:   icons,
		metrics: orNop(metrics),
	}
}

// Resolve returns the name and icon of placeID. The boolean is false when
// every source missed and info holds the unknown-place sentinel.
func (r *MetadataResolver) Resolve(ctx context.Context, placeID string) (model.PlaceInfo, bool) {
	info := model.PlaceInfo{Name: model.UnknownPlaceName}
	resolved := false

	for _, src := range r.sources {
		found, err := src.LookupPlace(ctx, placeID)
		ok := err == nil && found.Name != ""
		r.metrics.MetadataLookup(src.Name(), ok)
		if !ok {
			slog.Debug("metadata source missed", "source", src.Name(), "place_id", placeID, "error", err)
			if ctx.Err() != nil {
				return info, false
			}
			continue
		}
		info = found
		resolved = true
		break
	}

	if !resolved {
		return info, false
	}

	if info.IconURL == "" && info.UniverseID != "" && r.icons != nil {
		icon, err := r.icons.GameIcon(ctx, info.UniverseID)
		if err != nil {
			slog.Debug("game icon lookup failed", "universe_id", info.UniverseID, "error", err)
		} else {
			info.IconURL = icon
		}
	}

	return info, true
}
