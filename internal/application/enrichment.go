package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// staleMarkers flag stored names that came from an earlier, unclean lookup:
// raw HTML entities or marketing prefixes the platform adds to titles.
var staleMarkers = []string{"&#", "&amp;", "NEW!", "UPDATE"}

// historyLimit is how many last-played entries are shown and refreshed per
// account.
const historyLimit = 20

// EnrichmentJob asks the worker to resolve metadata for one history entry.
type EnrichmentJob struct {
	Username string
	PlaceID  string
}

// EnrichmentWorker resolves game metadata in the background and writes it
// to the last-played store. Jobs are deduplicated while queued.
type EnrichmentWorker struct {
	resolver *MetadataResolver
	store    driven.LastPlayedStore
	metrics  Recorder
	queue    chan EnrichmentJob

	mu      sync.Mutex
	pending map[EnrichmentJob]struct{}
}

// NewEnrichmentWorker creates an EnrichmentWorker with a queue of queueSize.
func NewEnrichmentWorker(resolver *MetadataResolver, store driven.LastPlayedStore, queueSize int, metrics Recorder) *EnrichmentWorker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &EnrichmentWorker{
		resolver: resolver,
		store:    store,
		metrics:  orNop(metrics),
		queue:    make(chan EnrichmentJob, queueSize),
		pending:  make(map[EnrichmentJob]struct{}),
	}
}

// Submit enqueues job without blocking. It returns false when the job was
// dropped because the queue is full; a job already queued counts as
// accepted.
func (w *EnrichmentWorker) Submit(job EnrichmentJob) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, queued := w.pending[job]; queued {
		return true
	}

	select {
	case w.queue <- job:
		w.pending[job] = struct{}{}
		return true
	default:
		w.metrics.EnrichmentDrop()
		slog.Warn("enrichment queue full, dropping job", "username", job.Username, "place_id", job.PlaceID)
		return false
	}
}

// Start consumes jobs until ctx is canceled. Errors are logged and the job
// is discarded.
func (w *EnrichmentWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("enrichment worker stopped")
			return
		case job := <-w.queue:
			w.mu.Lock()
			delete(w.pending, job)
			w.mu.Unlock()

			w.process(ctx, job)
		}
	}
}

func (w *EnrichmentWorker) process(ctx context.Context, job EnrichmentJob) {
	info, ok := w.resolver.Resolve(ctx, job.PlaceID)
	if !ok {
		slog.Debug("game metadata unavailable, keeping stored entry", "username", job.Username, "place_id", job.PlaceID)
		return
	}
	if err := w.store.UpdateMetadata(ctx, job.Username, job.PlaceID, info.Name, info.IconURL); err != nil {
		slog.Error("store game metadata", "username", job.Username, "place_id", job.PlaceID, "error", err)
		return
	}
	slog.Debug("enriched last played entry", "username", job.Username, "place_id", job.PlaceID, "name", info.Name)
}

// RefreshStale enqueues every recent entry of username whose name looks
// unresolved or unclean. It returns the number of jobs accepted.
func (w *EnrichmentWorker) RefreshStale(ctx context.Context, username string) (int, error) {
	entries, err := w.store.List(ctx, username, historyLimit)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if !NeedsRefresh(e.Name) {
			continue
		}
		if w.Submit(EnrichmentJob{Username: username, PlaceID: e.PlaceID}) {
			n++
		}
	}
	return n, nil
}

// NeedsRefresh reports whether a stored game name should be looked up again.
func NeedsRefresh(name string) bool {
	if name == "" || name == model.UnknownPlaceName {
		return true
	}
	for _, marker := range staleMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
