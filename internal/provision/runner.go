package provision

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/extgov-platform/extgov/internal/allowlist"
	inats "github.com/extgov-platform/extgov/internal/nats"
)

// State of the provisioning lifecycle.
type State string

const (
	StateUnconfigured State = "unconfigured" // no remote config ever applied
	StateFetching     State = "fetching"     // cycle in flight
	StateActive       State = "active"       // last cycle succeeded
	StateDegraded     State = "degraded"     // last cycle failed, previous config in force
)

// Status is a point-in-time view of the runner for the admin API and
// readiness probe.
type Status struct {
	State       State     `json:"state"`
	Revision    string    `json:"revision,omitempty"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	SnapshotSeq uint64    `json:"snapshot_seq"`
	Entries     int       `json:"entries"`
}

// Alerter delivers ops alerts on state transitions. Implemented by
// notify.Notifier; nil disables alerting.
type Alerter interface {
	Alert(ctx context.Context, body string) error
}

// Runner drives the fetch lifecycle: seed from the disk cache, fetch at
// startup, then refetch on a timer or manual trigger. It is the single
// writer behind the registry.
type Runner struct {
	fetcher   *Fetcher
	registry  *allowlist.Registry
	cache     *Cache
	publisher *inats.Publisher // nil disables event emission
	alerter   Alerter          // nil disables alerts
	interval  time.Duration

	refreshCh chan struct{}

	mu          sync.Mutex
	state       State
	revision    string
	lastSuccess time.Time
	lastErr     string
}

// NewRunner creates a runner. publisher and alerter may be nil.
func NewRunner(fetcher *Fetcher, registry *allowlist.Registry, cache *Cache, publisher *inats.Publisher, alerter Alerter, interval time.Duration) *Runner {
	return &Runner{
		fetcher:   fetcher,
		registry:  registry,
		cache:     cache,
		publisher: publisher,
		alerter:   alerter,
		interval:  interval,
		refreshCh: make(chan struct{}, 1),
		state:     StateUnconfigured,
	}
}

// Refresh requests a fetch cycle outside the regular schedule. Non-blocking;
// a cycle already pending absorbs the request.
func (r *Runner) Refresh() {
	select {
	case r.refreshCh <- struct{}{}:
	default:
	}
}

// Status returns the current lifecycle state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.registry.Snapshot()
	return Status{
		State:       r.state,
		Revision:    r.revision,
		LastSuccess: r.lastSuccess,
		LastError:   r.lastErr,
		SnapshotSeq: snap.Seq,
		Entries:     snap.Len(),
	}
}

// Run seeds the registry from the disk cache, performs the startup fetch and
// then loops until ctx is cancelled. An in-flight fetch is abandoned on
// shutdown without publishing a partial result.
func (r *Runner) Run(ctx context.Context) {
	r.seed()
	r.cycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("provision: runner stopped")
			return
		case <-ticker.C:
			r.cycle(ctx)
		case <-r.refreshCh:
			r.cycle(ctx)
		}
	}
}

// seed publishes the disk-cached config, if any, as the initial best guess.
// The state stays Unconfigured: cached data does not count as a successful
// fetch.
func (r *Runner) seed() {
	if r.cache == nil {
		return
	}
	cached, err := r.cache.Load()
	if err != nil {
		slog.Warn("provision: loading disk cache", "error", err)
		return
	}
	if cached == nil {
		slog.Debug("provision: no disk cache, starting baseline-only")
		return
	}

	r.registry.Publish(cached)
	slog.Info("provision: seeded from disk cache",
		"revision", cached.Revision,
		"entries", len(cached.Entries),
		"fetched_at", cached.FetchedAt,
	)
}

func (r *Runner) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	prev := r.state
	r.state = StateFetching
	r.mu.Unlock()

	res, err := r.fetcher.FetchAndUpdate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-fetch: abandon quietly, publish nothing.
			return
		}
		r.onFailure(ctx, err, prev)
		return
	}
	r.onSuccess(ctx, res, prev)
}

func (r *Runner) onSuccess(ctx context.Context, res *Result, prev State) {
	wasDegraded := prev == StateDegraded
	r.mu.Lock()
	r.state = StateActive
	r.revision = res.Remote.Revision
	r.lastSuccess = time.Now().UTC()
	r.lastErr = ""
	r.mu.Unlock()

	slog.Info("provision: fetch cycle succeeded",
		"revision", res.Remote.Revision,
		"entries", len(res.Remote.Entries),
		"skipped", res.Skipped,
		"attempts", res.Attempts,
	)

	r.emit(ctx, inats.FetchResultEvent{
		Outcome:   "success",
		Revision:  res.Remote.Revision,
		Entries:   len(res.Remote.Entries),
		Skipped:   res.Skipped,
		Attempts:  res.Attempts,
		Timestamp: time.Now().UTC(),
	})

	if wasDegraded {
		r.alert(ctx, "provisioning recovered: revision "+res.Remote.Revision)
	}
}

func (r *Runner) onFailure(ctx context.Context, err error, prev State) {
	outcome := string(FailTransient)
	attempts := 0
	var fe *FetchError
	if errors.As(err, &fe) {
		outcome = string(fe.Kind)
		attempts = fe.Attempts
	}

	wasDegraded := prev == StateDegraded
	r.mu.Lock()
	// Revision stays at whatever was last successfully active; baseline-only
	// is a valid, safe state, not an error state.
	r.state = StateDegraded
	r.lastErr = err.Error()
	r.mu.Unlock()

	slog.Error("provision: fetch cycle failed, previous config in force",
		"outcome", outcome,
		"attempts", attempts,
		"error", err,
	)

	r.emit(ctx, inats.FetchResultEvent{
		Outcome:   outcome,
		Attempts:  attempts,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})

	if !wasDegraded {
		r.alert(ctx, "provisioning degraded: "+err.Error())
	}
}

func (r *Runner) emit(ctx context.Context, event inats.FetchResultEvent) {
	if r.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.publisher.PublishFetchResult(pubCtx, event); err != nil {
		slog.Warn("provision: publishing fetch event", "error", err)
	}
}

func (r *Runner) alert(ctx context.Context, body string) {
	if r.alerter == nil {
		return
	}
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.alerter.Alert(alertCtx, body); err != nil {
		slog.Warn("provision: sending ops alert", "error", err)
	}
}
