package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/extgov-platform/extgov/internal/allowlist"
	"github.com/extgov-platform/extgov/internal/metrics"
)

// FailureKind classifies a failed fetch cycle.
type FailureKind string

const (
	FailTransient FailureKind = "transient" // network error, 5xx, 429 — retried
	FailPermanent FailureKind = "permanent" // other 4xx, malformed URL — no retry
	FailParse     FailureKind = "parse"     // body unusable in full
)

// FetchError is returned when a fetch cycle ends without a publishable config.
type FetchError struct {
	Kind     FailureKind
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (%s, %d attempts): %v", e.Kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Result describes a successful fetch cycle.
type Result struct {
	Remote   *allowlist.RemoteConfig
	Skipped  int // malformed entries dropped
	Attempts int
}

// Vars so tests can shorten the retry schedule.
var (
	backoffBase = 2 * time.Second
	backoffMax  = 60 * time.Second
)

// Fetcher retrieves and validates the remote trust configuration. It is the
// only writer to the registry; all of its work happens on the runner
// goroutine, never on a request path.
type Fetcher struct {
	url         string
	client      *http.Client
	maxAttempts int
	registry    *allowlist.Registry
	cache       *Cache // nil disables the disk mirror
	baseline    map[allowlist.ID]struct{}
}

// NewFetcher creates a fetcher for the given endpoint.
func NewFetcher(url string, timeout time.Duration, maxAttempts int, registry *allowlist.Registry, cache *Cache) *Fetcher {
	base := make(map[allowlist.ID]struct{})
	for _, e := range registry.Snapshot().Entries() {
		if e.Source == allowlist.SourceStatic {
			base[e.ID] = struct{}{}
		}
	}
	return &Fetcher{
		url:         url,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		registry:    registry,
		cache:       cache,
		baseline:    base,
	}
}

// FetchAndUpdate runs one fetch cycle: GET with retries, parse, dedupe
// against the baseline, persist to the disk cache (best-effort) and publish
// atomically. On any failure the previously published config stays in force.
func (f *Fetcher) FetchAndUpdate(ctx context.Context) (*Result, error) {
	body, attempts, err := f.fetchWithRetry(ctx)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			metrics.FetchAttemptsTotal.WithLabelValues(string(fe.Kind)).Inc()
		}
		return nil, err
	}

	entries, skipped, err := parseEntries(body)
	if err != nil {
		metrics.FetchAttemptsTotal.WithLabelValues(string(FailParse)).Inc()
		return nil, &FetchError{Kind: FailParse, Attempts: attempts, Err: err}
	}

	// Baseline wins on id conflict; conflicting remote entries are dropped.
	merged := entries[:0]
	for _, e := range entries {
		if _, conflict := f.baseline[e.ID]; conflict {
			slog.Debug("provision: remote entry shadows baseline, ignored", "id", e.ID)
			continue
		}
		merged = append(merged, e)
	}

	sum := sha256.Sum256(body)
	remote := &allowlist.RemoteConfig{
		FetchedAt: time.Now().UTC(),
		Revision:  hex.EncodeToString(sum[:]),
		Entries:   merged,
	}

	// Cache write failure is logged, never escalated: the in-memory publish
	// must not depend on disk.
	if f.cache != nil {
		if err := f.cache.Save(remote); err != nil {
			slog.Warn("provision: writing disk cache", "error", err, "path", f.cache.Path())
		}
	}

	f.registry.Publish(remote)
	metrics.FetchAttemptsTotal.WithLabelValues("success").Inc()

	return &Result{Remote: remote, Skipped: skipped, Attempts: attempts}, nil
}

// fetchWithRetry performs the GET with exponential backoff plus jitter on
// transient failures. Returns the response body and the attempt count.
func (f *Fetcher) fetchWithRetry(ctx context.Context) ([]byte, int, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.FetchRetriesTotal.Inc()
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return nil, attempt - 1, &FetchError{Kind: FailTransient, Attempts: attempt - 1, Err: err}
			}
		}

		body, err := f.fetchOnce(ctx)
		if err == nil {
			return body, attempt, nil
		}

		var fe *FetchError
		if errors.As(err, &fe) && fe.Kind == FailPermanent {
			fe.Attempts = attempt
			return nil, attempt, fe
		}

		lastErr = err
		slog.Warn("provision: fetch attempt failed",
			"attempt", attempt,
			"max_attempts", f.maxAttempts,
			"error", err,
		)
	}

	return nil, f.maxAttempts, &FetchError{Kind: FailTransient, Attempts: f.maxAttempts, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FailPermanent, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	default:
		return nil, &FetchError{Kind: FailPermanent, Err: fmt.Errorf("server returned %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

func sleepBackoff(ctx context.Context, retry int) error {
	d := backoffBase << (retry - 1)
	if d > backoffMax {
		d = backoffMax
	}
	// Jitter: 50%–150% of the computed delay.
	d = d/2 + time.Duration(rand.Int63n(int64(d)))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type wireEntry struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Version  string `json:"version"`
}

// parseEntries decodes the response body. Individually malformed entries are
// skipped with a diagnostic; if every entry is malformed the whole body is a
// parse failure and the caller retains the previous config. An empty entry
// list is valid and publishes a baseline-only effective list.
func parseEntries(body []byte) ([]allowlist.Entry, int, error) {
	// Accept either {"entries": [...]} or a bare array.
	var envelope struct {
		Entries []wireEntry `json:"entries"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		var bare []wireEntry
		if err2 := json.Unmarshal(body, &bare); err2 != nil {
			return nil, 0, fmt.Errorf("decoding response body: %w", err)
		}
		envelope.Entries = bare
	}

	entries := make([]allowlist.Entry, 0, len(envelope.Entries))
	skipped := 0
	for i, w := range envelope.Entries {
		id, err := allowlist.ParseID(w.ID)
		if err != nil {
			slog.Warn("provision: skipping malformed entry", "index", i, "error", err)
			skipped++
			continue
		}
		entries = append(entries, allowlist.Entry{
			ID:       id,
			Source:   allowlist.SourceRemote,
			Location: w.Location,
			Version:  w.Version,
		})
	}

	if len(entries) == 0 && skipped > 0 {
		return nil, skipped, fmt.Errorf("all %d entries malformed", skipped)
	}
	return entries, skipped, nil
}
