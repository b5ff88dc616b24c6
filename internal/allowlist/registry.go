package allowlist

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/extgov-platform/extgov/internal/metrics"
)

// Registry is the process-wide store of the effective allow-list. It is
// read-mostly: many concurrent readers, a single writer (the provision
// runner) serialized by publishMu. Readers load the current snapshot with one
// atomic pointer read and never take a lock.
type Registry struct {
	baseline []Entry

	publishMu sync.Mutex
	seq       uint64
	current   atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry seeded with the compiled-in baseline. The
// effective list is never empty: before any remote config is published it
// equals the baseline exactly.
func NewRegistry(baseline []Entry) *Registry {
	r := &Registry{baseline: baseline}
	r.current.Store(r.build(nil))
	return r
}

// IsProtected reports whether the extension cannot be disabled or removed
// through user-facing paths.
func (r *Registry) IsProtected(id ID) bool {
	return r.current.Load().Contains(id)
}

// IsTrustedForOverride reports whether the extension may override built-in
// browser pages. Protection implies override trust: both predicates read the
// same list.
func (r *Registry) IsTrustedForOverride(id ID) bool {
	return r.current.Load().Contains(id)
}

// Snapshot returns the current effective allow-list view.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Publish atomically replaces the active remote config. A nil remote resets
// to baseline-only. Snapshot sequence numbers are monotonically increasing,
// so a reader that has seen seq R never later observes a snapshot < R.
func (r *Registry) Publish(remote *RemoteConfig) *Snapshot {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	snap := r.build(remote)
	r.current.Store(snap)

	metrics.SnapshotSeq.Set(float64(snap.Seq))
	metrics.SnapshotEntries.Set(float64(snap.Len()))
	slog.Info("allowlist: published snapshot",
		"seq", snap.Seq,
		"revision", snap.Revision,
		"entries", snap.Len(),
	)
	return snap
}

// build assembles a snapshot from the baseline plus an optional remote
// config. Dedupe is by id with the baseline winning; the merge is done here
// (not only in the fetcher) so the invariant holds no matter what the caller
// hands in.
func (r *Registry) build(remote *RemoteConfig) *Snapshot {
	r.seq++
	snap := &Snapshot{
		Seq:     r.seq,
		entries: make([]Entry, 0, len(r.baseline)),
		index:   make(map[ID]struct{}, len(r.baseline)),
	}

	for _, e := range r.baseline {
		e.Source = SourceStatic
		snap.entries = append(snap.entries, e)
		snap.index[e.ID] = struct{}{}
	}

	if remote != nil {
		snap.Revision = remote.Revision
		for _, e := range remote.Entries {
			if _, dup := snap.index[e.ID]; dup {
				continue
			}
			e.Source = SourceRemote
			snap.entries = append(snap.entries, e)
			snap.index[e.ID] = struct{}{}
		}
	}
	return snap
}
