package enforcement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/extgov-platform/extgov/internal/allowlist"
)

func TestOverrideGate_DeniesOutsideAllowList(t *testing.T) {
	g := NewOverrideGate(testRegistry(), nil)
	ctx := context.Background()

	// Non-empty urls and a held permission do not matter: deny.
	urls := []string{"chrome://newtab", "chrome://history"}
	assert.Equal(t, Deny, g.ShouldRegisterOverride(ctx, strangerID, urls))
	assert.Equal(t, Deny, g.ShouldRegisterOverride(ctx, strangerID, nil))
}

func TestOverrideGate_AllowsInsideAllowList(t *testing.T) {
	g := NewOverrideGate(testRegistry(), nil)
	ctx := context.Background()

	assert.Equal(t, Allow, g.ShouldRegisterOverride(ctx, protectedID, []string{"chrome://newtab"}))
	assert.Equal(t, Allow, g.ShouldRegisterOverride(ctx, protectedID, nil))
}

func TestOverrideGate_TrustFollowsPublishedSnapshot(t *testing.T) {
	reg := testRegistry()
	g := NewOverrideGate(reg, nil)
	ctx := context.Background()

	assert.Equal(t, Deny, g.ShouldRegisterOverride(ctx, remoteAddedID, nil))

	reg.Publish(&allowlist.RemoteConfig{
		Revision: "rev-1",
		Entries:  []allowlist.Entry{{ID: remoteAddedID, Source: allowlist.SourceRemote}},
	})
	assert.Equal(t, Allow, g.ShouldRegisterOverride(ctx, remoteAddedID, nil))

	reg.Publish(nil)
	assert.Equal(t, Deny, g.ShouldRegisterOverride(ctx, remoteAddedID, nil))
}
