package enforcement

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/extgov-platform/extgov/internal/allowlist"
	"github.com/extgov-platform/extgov/internal/metrics"
	inats "github.com/extgov-platform/extgov/internal/nats"
)

// Decision is the outcome of an override checkpoint query.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// OverrideGate vetoes attempts by non-trusted extensions to override built-in
// browser pages (new tab, history, settings). Registration mechanics for
// allowed overrides stay with the host.
type OverrideGate struct {
	registry  *allowlist.Registry
	publisher *inats.Publisher // nil disables audit events
}

// NewOverrideGate creates a gate backed by the registry.
func NewOverrideGate(registry *allowlist.Registry, publisher *inats.Publisher) *OverrideGate {
	return &OverrideGate{registry: registry, publisher: publisher}
}

// ShouldRegisterOverride denies unconditionally when id is outside the
// allow-list, even when requestedURLs is non-empty and the extension holds
// the override permission. Allow-listed ids pass unconditionally.
func (g *OverrideGate) ShouldRegisterOverride(ctx context.Context, id allowlist.ID, requestedURLs []string) Decision {
	trusted := g.registry.IsTrustedForOverride(id)
	if !trusted {
		slog.Info("enforcement: override denied",
			"id", id,
			"requested_urls", strings.Join(requestedURLs, ","),
		)
	}

	decision := Deny
	if trusted {
		decision = Allow
	}
	metrics.DecisionsTotal.WithLabelValues(inats.CheckpointOverride, string(decision)).Inc()

	emitDecision(ctx, g.publisher, inats.DecisionEvent{
		Checkpoint:  inats.CheckpointOverride,
		ExtensionID: string(id),
		Allowed:     trusted,
		Protected:   trusted,
		Reason:      strings.Join(requestedURLs, ","),
		Timestamp:   time.Now().UTC(),
	})

	return decision
}
