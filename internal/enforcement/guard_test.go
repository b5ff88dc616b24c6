package enforcement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/extgov-platform/extgov/internal/allowlist"
)

const (
	protectedID   = allowlist.ID("abcdefghijklmnopabcdefghijklmnop")
	remoteAddedID = allowlist.ID("aabbccddeeffaabbccddeeffaabbccdd")
	strangerID    = allowlist.ID("ppoonnmmllkkjjiihhggffeeddccbbaa")
)

func testRegistry() *allowlist.Registry {
	return allowlist.NewRegistry([]allowlist.Entry{
		{ID: protectedID, Source: allowlist.SourceStatic},
	})
}

func TestDisableGuard_VetoesProtected(t *testing.T) {
	g := NewDisableGuard(testRegistry(), nil)
	ctx := context.Background()

	assert.False(t, g.CanDisable(ctx, protectedID, "user", "clicked toggle"))
	assert.True(t, g.CanDisable(ctx, strangerID, "user", ""))
}

func TestDisableGuard_RequesterIrrelevant(t *testing.T) {
	g := NewDisableGuard(testRegistry(), nil)
	ctx := context.Background()

	for _, requester := range []string{"user", "sync", "cleanup", ""} {
		assert.False(t, g.CanDisable(ctx, protectedID, requester, "any reason"),
			"requester %q must not bypass protection", requester)
	}
}

func TestDisableGuard_CoversRemoteEntries(t *testing.T) {
	reg := testRegistry()
	g := NewDisableGuard(reg, nil)
	ctx := context.Background()

	assert.True(t, g.CanDisable(ctx, remoteAddedID, "user", ""))

	reg.Publish(&allowlist.RemoteConfig{
		Revision: "rev-1",
		Entries:  []allowlist.Entry{{ID: remoteAddedID, Source: allowlist.SourceRemote}},
	})

	assert.False(t, g.CanDisable(ctx, remoteAddedID, "user", ""))

	// Every id in the effective list is vetoed.
	for _, e := range reg.Snapshot().Entries() {
		assert.False(t, g.CanDisable(ctx, e.ID, "user", ""))
	}
}
