package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// LockToggle starts or stops the background instance-lock loop.
type LockToggle interface {
	SetEnabled(ctx context.Context, enabled bool)
}

// SettingsService reads and writes the feature toggles and keeps the
// instance-lock loop in step with the multi-instance toggle.
type SettingsService struct {
	store driven.SettingsStore
	lock  LockToggle
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store driven.SettingsStore, lock LockToggle) *SettingsService {
	return &SettingsService{store: store, lock: lock}
}

// Get returns the stored settings.
func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	return s.store.Get(ctx)
}

// Set persists settings, then starts or stops the lock loop to match.
func (s *SettingsService) Set(ctx context.Context, settings model.Settings) error {
	if err := s.store.Set(ctx, settings); err != nil {
		return err
	}
	s.lock.SetEnabled(ctx, settings.MultiInstance)
	slog.Info("settings updated", "multi_instance", settings.MultiInstance, "hide_usernames", settings.HideUsernames)
	return nil
}

// Apply brings the lock loop in line with the stored settings. Called once
// at startup.
func (s *SettingsService) Apply(ctx context.Context) error {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return err
	}
	s.lock.SetEnabled(ctx, settings.MultiInstance)
	return nil
}
