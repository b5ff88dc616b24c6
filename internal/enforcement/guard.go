package enforcement

import (
	"context"
	"log/slog"
	"time"

	"github.com/extgov-platform/extgov/internal/allowlist"
	"github.com/extgov-platform/extgov/internal/metrics"
	inats "github.com/extgov-platform/extgov/internal/nats"
)

// DisableGuard supplies one veto vote to the host's "can this extension be
// disabled" checkpoint. It is a total function on a snapshot read: it never
// fails and never performs I/O on the decision path.
type DisableGuard struct {
	registry  *allowlist.Registry
	publisher *inats.Publisher // nil disables audit events
}

// NewDisableGuard creates a guard backed by the registry.
func NewDisableGuard(registry *allowlist.Registry, publisher *inats.Publisher) *DisableGuard {
	return &DisableGuard{registry: registry, publisher: publisher}
}

// CanDisable returns false for any id in the effective allow-list, regardless
// of requester or supplied reason. Protected extensions are only removable
// through an administrative path the host owns. A true result defers to any
// other host-side veto logic.
func (g *DisableGuard) CanDisable(ctx context.Context, id allowlist.ID, requester, reason string) bool {
	protected := g.registry.IsProtected(id)
	if protected {
		slog.Info("enforcement: disable vetoed",
			"id", id,
			"requester", requester,
			"reason", reason,
		)
	}

	outcome := "allowed"
	if protected {
		outcome = "vetoed"
	}
	metrics.DecisionsTotal.WithLabelValues(inats.CheckpointDisable, outcome).Inc()

	emitDecision(ctx, g.publisher, inats.DecisionEvent{
		Checkpoint:  inats.CheckpointDisable,
		ExtensionID: string(id),
		Allowed:     !protected,
		Protected:   protected,
		Requester:   requester,
		Reason:      reason,
		Timestamp:   time.Now().UTC(),
	})

	return !protected
}

// emitDecision publishes an audit event without ever blocking or failing the
// decision. It is fire-and-forget with its own short deadline.
func emitDecision(ctx context.Context, publisher *inats.Publisher, event inats.DecisionEvent) {
	if publisher == nil {
		return
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := publisher.PublishDecision(pubCtx, event); err != nil {
			slog.Warn("enforcement: publishing decision event", "error", err, "checkpoint", event.Checkpoint)
		}
	}()
}
