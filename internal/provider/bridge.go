package provider

import (
	"github.com/extgov-platform/extgov/internal/allowlist"
	"github.com/extgov-platform/extgov/internal/metrics"
)

// Record is one extension in the shape the host's external-provider protocol
// expects. The policy flags mark the whole set as pre-approved: the host's
// generic install lifecycle drives actual installation without interactive
// confirmation.
type Record struct {
	ID                 string `json:"id"`
	Location           string `json:"location,omitempty"`
	Version            string `json:"version,omitempty"`
	Source             string `json:"source"`
	AutoAcknowledge    bool   `json:"auto_acknowledge"`
	AllowUpdates       bool   `json:"allow_updates"`
	InstallImmediately bool   `json:"install_immediately"`
	InstalledByDefault bool   `json:"installed_by_default"`
}

// Bridge re-shapes the current registry snapshot for the host. It keeps no
// state of its own: the host owns the install state machine, retries and
// persistence of install status, and may poll at arbitrary times.
type Bridge struct {
	registry           *allowlist.Registry
	remoteProvisioning bool
}

// NewBridge creates a bridge. remoteProvisioning mirrors the kill switch: when
// false the service runs baseline-only and the snapshot never grows past the
// compiled-in set.
func NewBridge(registry *allowlist.Registry, remoteProvisioning bool) *Bridge {
	return &Bridge{registry: registry, remoteProvisioning: remoteProvisioning}
}

// RemoteProvisioning reports whether remote provisioning is enabled.
func (b *Bridge) RemoteProvisioning() bool {
	return b.remoteProvisioning
}

// Records returns the current snapshot re-shaped into provider records.
// Each call reads the snapshot fresh; there is no caching beyond the
// registry's own atomic pointer.
func (b *Bridge) Records() []Record {
	metrics.ProviderQueriesTotal.Inc()

	snap := b.registry.Snapshot()
	records := make([]Record, 0, snap.Len())
	for _, e := range snap.Entries() {
		records = append(records, Record{
			ID:                 string(e.ID),
			Location:           e.Location,
			Version:            e.Version,
			Source:             string(e.Source),
			AutoAcknowledge:    true,
			AllowUpdates:       true,
			InstallImmediately: true,
			InstalledByDefault: true,
		})
	}
	return records
}
