package application

import (
	"context"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// StaleRefresher queues metadata lookups for unresolved history entries.
type StaleRefresher interface {
	RefreshStale(ctx context.Context, username string) (int, error)
}

// HistoryService serves an account's last-played list.
type HistoryService struct {
	store   driven.LastPlayedStore
	refresh StaleRefresher
}

// NewHistoryService creates a HistoryService. refresh may be nil.
func NewHistoryService(store driven.LastPlayedStore, refresh StaleRefresher) *HistoryService {
	return &HistoryService{store: store, refresh: refresh}
}

// List returns up to limit recent entries for username, history limit when
// limit is not positive. Entries still showing unresolved names are queued
// for a background lookup; the returned list is not held back for it.
func (s *HistoryService) List(ctx context.Context, username string, limit int) ([]model.LastPlayed, error) {
	if limit <= 0 {
		limit = historyLimit
	}

	entries, err := s.store.List(ctx, username, limit)
	if err != nil {
		return nil, err
	}

	if s.refresh != nil {
		for _, e := range entries {
			if NeedsRefresh(e.Name) {
				_, _ = s.refresh.RefreshStale(ctx, username)
				break
			}
		}
	}

	return entries, nil
}

// Delete removes one entry from username's history.
func (s *HistoryService) Delete(ctx context.Context, username, placeID string) error {
	return s.store.Delete(ctx, username, placeID)
}
