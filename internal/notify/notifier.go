// Package notify delivers ops alerts over an XMPP component (XEP-0114).
// Alerting is strictly best-effort: provisioning and enforcement never depend
// on the alert channel being up.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	"github.com/extgov-platform/extgov/internal/config"
)

// Notifier manages the XMPP component lifecycle and sends alert messages to
// the configured ops JID.
type Notifier struct {
	sm     *xmpp.StreamManager
	comp   *xmpp.Component
	from   string
	to     string
	cancel context.CancelFunc
}

// NewNotifier creates a notifier. Returns an error if the component cannot be
// constructed; connection problems surface later, in Start.
func NewNotifier(cfg config.XMPPConfig) (*Notifier, error) {
	router := xmpp.NewRouter()

	opts := xmpp.ComponentOptions{
		TransportConfiguration: xmpp.TransportConfiguration{
			Address: cfg.ComponentAddr(),
			Domain:  cfg.ComponentName,
		},
		Domain:   cfg.ComponentName,
		Secret:   cfg.ComponentSecret,
		Name:     "Extension Governance Alerts",
		Category: "component",
		Type:     "generic",
	}

	comp, err := xmpp.NewComponent(opts, router, func(err error) {
		slog.Error("XMPP component error", "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("creating XMPP component: %w", err)
	}

	sm := xmpp.NewStreamManager(comp, func(s xmpp.Sender) {
		slog.Info("XMPP component connected", "domain", cfg.ComponentName)
	})

	return &Notifier{
		sm:   sm,
		comp: comp,
		from: cfg.ComponentName,
		to:   cfg.AlertJID,
	}, nil
}

// Start runs the XMPP component. It blocks until the context is cancelled or
// an error occurs.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, n.cancel = context.WithCancel(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.sm.Run()
	}()

	select {
	case <-ctx.Done():
		n.sm.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop disconnects the XMPP component.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.sm.Stop()
}

// Alert sends a message stanza to the ops JID. Implements provision.Alerter.
func (n *Notifier) Alert(_ context.Context, body string) error {
	msg := stanza.Message{
		Attrs: stanza.Attrs{
			From: n.from,
			To:   n.to,
			Type: "chat",
		},
		Body: body,
	}
	if err := n.comp.Send(msg); err != nil {
		return fmt.Errorf("sending alert stanza: %w", err)
	}
	return nil
}
