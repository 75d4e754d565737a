package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Bounds for a launch burst.
const (
	MinBurstDuration = 500 * time.Millisecond
	MinBurstInterval = 50 * time.Millisecond
)

// InstanceLockService keeps the game client's single-instance lock cleared
// while multi-instance mode is on. Clearing is best-effort: failures are
// logged at debug and never surface.
type InstanceLockService struct {
	clearer  driven.InstanceLockClearer
	interval time.Duration
	metrics  Recorder

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewInstanceLockService creates an InstanceLockService that clears the lock
// every interval while enabled.
func NewInstanceLockService(clearer driven.InstanceLockClearer, interval time.Duration, metrics Recorder) *InstanceLockService {
	if interval <= 0 {
		interval = time.Second
	}
	return &InstanceLockService{
		clearer:  clearer,
		interval: interval,
		metrics:  orNop(metrics),
	}
}

// SetEnabled starts or stops the background loop. The loop outlives ctx's
// cancellation; only SetEnabled(false) or Stop ends it.
func (s *InstanceLockService) SetEnabled(ctx context.Context, enabled bool) {
	if !enabled {
		s.Stop()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		s.loop(loopCtx, s.interval)
	}()
	slog.Info("instance lock loop started", "interval", s.interval)
}

// Enabled reports whether the background loop is running.
func (s *InstanceLockService) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Stop cancels the background loop and waits for it to exit.
func (s *InstanceLockService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("instance lock loop stopped")
}

// Burst clears the lock every interval for duration, blocking until done or
// ctx is canceled. Values below the minimums are raised to them.
func (s *InstanceLockService) Burst(ctx context.Context, duration, interval time.Duration) {
	duration = max(duration, MinBurstDuration)
	interval = max(interval, MinBurstInterval)

	burstCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()
	s.loop(burstCtx, interval)
}

func (s *InstanceLockService) loop(ctx context.Context, interval time.Duration) {
	s.clear()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.clear()
		}
	}
}

func (s *InstanceLockService) clear() {
	err := s.clearer.Clear()
	if errors.Is(err, driven.ErrInstanceLockUnsupported) {
		return
	}
	s.metrics.LockClear(err)
	if err != nil {
		slog.Debug("clear instance lock", "error", err)
	}
}
