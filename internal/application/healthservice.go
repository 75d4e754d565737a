package application

import "context"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KeyHealth reports whether the encryption key is running degraded, that is
// ephemeral and lost at exit.
type KeyHealth interface {
	Degraded() error
}

// Health statuses.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

// HealthReport is the liveness view served by the API.
type HealthReport struct {
	Status      string
	Store       error
	KeyDegraded error
}

// HealthService combines store reachability and key persistence into one
// status. It depends only on small interfaces.
type HealthService struct {
	store Pinger
	key   KeyHealth
}

// NewHealthService creates a new HealthService with the required dependencies.
func NewHealthService(store Pinger, key KeyHealth) *HealthService {
	return &HealthService{
		store: store,
		key:   key,
	}
}

// Check returns "down" when the store is unreachable, "degraded" when the
// key is ephemeral, and "ok" otherwise.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	report := HealthReport{Status: HealthOK}

	if s.key != nil {
		report.KeyDegraded = s.key.Degraded()
	}
	if report.KeyDegraded != nil {
		report.Status = HealthDegraded
	}

	if s.store != nil {
		report.Store = s.store.Ping(ctx)
	}
	if report.Store != nil {
		report.Status = HealthDown
	}

	return report
}
