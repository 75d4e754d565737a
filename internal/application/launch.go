package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// ErrLaunchDispatch indicates the OS refused the launch descriptor.
var ErrLaunchDispatch = errors.New("could not hand launch uri to the os")

// LaunchConfig tunes the launch flow.
type LaunchConfig struct {
	Stagger       time.Duration // Pause between accounts in a batch.
	BurstDuration time.Duration // Length of the lock-clearing burst per launch.
	BurstInterval time.Duration // Clear interval within a burst.
}

// LockBurster runs a short high-frequency lock-clearing loop.
type LockBurster interface {
	Burst(ctx context.Context, duration, interval time.Duration)
}

// JobSubmitter accepts background enrichment jobs.
type JobSubmitter interface {
	Submit(job EnrichmentJob) bool
}

// LaunchService launches accounts into places: it exchanges the stored
// secret for a ticket, dispatches the launch descriptor, and records the
// play. Concurrent launches of the same account are not serialized here;
// callers that need that must serialize themselves.
type LaunchService struct {
	accounts   driven.AccountStore
	platform   driven.PlatformClient
	opener     driven.URIOpener
	lastPlayed driven.LastPlayedStore
	settings   driven.SettingsStore
	lock       LockBurster
	enrich     JobSubmitter
	cfg        LaunchConfig
	metrics    Recorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLaunchService creates a LaunchService with all required dependencies.
func NewLaunchService(
	accounts driven.AccountStore,
	platform driven.PlatformClient,
	opener driven.URIOpener,
	lastPlayed driven.LastPlayedStore,
	settings driven.SettingsStore,
	lock LockBurster,
	enrich JobSubmitter,
	cfg LaunchConfig,
	metrics Recorder,
) *LaunchService {
	return &LaunchService{
		accounts:   accounts,
		platform:   platform,
		opener:     opener,
		lastPlayed: lastPlayed,
		settings:   settings,
		lock:       lock,
		enrich:     enrich,
		cfg:        cfg,
		metrics:    orNop(metrics),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Launch starts one account in the place named by placeInput, which may be a
// bare id or any text containing one (such as a game URL). The returned
// result carries the same error as the second return value.
func (s *LaunchService) Launch(ctx context.Context, username, placeInput string) (model.LaunchResult, error) {
	result := model.LaunchResult{Username: username}

	uri, placeID, outcome, err := s.launch(ctx, username, placeInput)
	result.PlaceID, result.URI, result.Err = placeID, uri, err
	s.metrics.Launch(outcome)

	if err != nil {
		slog.Warn("launch failed", "username", username, "place_id", placeID, "error", err)
		return result, err
	}
	slog.Info("launched account", "username", username, "place_id", placeID)
	return result, nil
}

// launch returns the dispatched uri, the extracted place id and the metrics
// outcome label alongside any error.
func (s *LaunchService) launch(ctx context.Context, username, placeInput string) (string, string, string, error) {
	placeID, err := model.ExtractPlaceID(placeInput)
	if err != nil {
		return "", "", "invalid_place", err
	}

	account, err := s.accounts.Get(ctx, username)
	if errors.Is(err, driven.ErrAccountNotFound) {
		return "", placeID, "not_found", err
	}
	if err != nil {
		return "", placeID, "error", err
	}
	if account.Secret == "" {
		return "", placeID, "no_credential", fmt.Errorf("launch %s: %w", username, driven.ErrMissingCredential)
	}

	ticket, err := s.platform.AuthTicket(ctx, account.Secret, placeID)
	if err != nil {
		s.metrics.TicketFailure(ticketFailureReason(err))
		return "", placeID, "ticket_error", err
	}
	uri := s.platform.LaunchURI(ticket, placeID)

	s.maybeBurst(ctx)

	if err := s.opener.Open(uri); err != nil {
		return uri, placeID, "dispatch_error", fmt.Errorf("%w: %w", ErrLaunchDispatch, err)
	}

	if err := s.lastPlayed.Touch(ctx, username, placeID, s.now()); err != nil {
		slog.Error("record last played", "username", username, "place_id", placeID, "error", err)
	}
	if s.enrich != nil {
		s.enrich.Submit(EnrichmentJob{Username: username, PlaceID: placeID})
	}

	return uri, placeID, "ok", nil
}

// maybeBurst starts a lock-clearing burst in the background when
// multi-instance mode is on.
func (s *LaunchService) maybeBurst(ctx context.Context) {
	if s.lock == nil {
		return
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		slog.Warn("read settings for launch", "error", err)
		return
	}
	if !settings.MultiInstance {
		return
	}
	go s.lock.Burst(context.WithoutCancel(ctx), s.cfg.BurstDuration, s.cfg.BurstInterval)
}

// LaunchBatch launches each account in turn, pausing for the configured
// stagger between accounts. A failure is recorded in that account's result
// and does not stop the rest; cancelling ctx marks the remaining accounts
// with the context error.
func (s *LaunchService) LaunchBatch(ctx context.Context, usernames []string, placeInput string) []model.LaunchResult {
	results := make([]model.LaunchResult, 0, len(usernames))

	for i, username := range usernames {
		if i > 0 && s.cfg.Stagger > 0 {
			if err := s.sleep(ctx, s.cfg.Stagger); err != nil {
				for _, rest := range usernames[i:] {
					results = append(results, model.LaunchResult{Username: rest, Err: err})
				}
				break
			}
		}

		result, _ := s.Launch(ctx, username, placeInput)
		results = append(results, result)
	}

	return results
}

func ticketFailureReason(err error) string {
	switch {
	case errors.Is(err, driven.ErrMissingCSRFToken):
		return "csrf"
	case errors.Is(err, driven.ErrMissingTicket):
		return "ticket"
	default:
		return "transport"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
