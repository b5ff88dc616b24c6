package provider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extgov-platform/extgov/internal/allowlist"
)

const (
	baseID   = allowlist.ID("abcdefghijklmnopabcdefghijklmnop")
	remoteID = allowlist.ID("aabbccddeeffaabbccddeeffaabbccdd")
)

func testRegistry() *allowlist.Registry {
	return allowlist.NewRegistry([]allowlist.Entry{
		{ID: baseID, Source: allowlist.SourceStatic, Location: "https://example.test/base.xml"},
	})
}

func TestBridge_RecordsCarryProviderFlags(t *testing.T) {
	b := NewBridge(testRegistry(), true)

	records := b.Records()
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, string(baseID), rec.ID)
	assert.Equal(t, "https://example.test/base.xml", rec.Location)
	assert.True(t, rec.AutoAcknowledge)
	assert.True(t, rec.AllowUpdates)
	assert.True(t, rec.InstallImmediately)
	assert.True(t, rec.InstalledByDefault)
}

func TestBridge_RepeatedQueriesTrackSnapshot(t *testing.T) {
	reg := testRegistry()
	b := NewBridge(reg, true)

	require.Len(t, b.Records(), 1)
	require.Len(t, b.Records(), 1, "polling twice is harmless")

	reg.Publish(&allowlist.RemoteConfig{
		Revision: "rev-1",
		Entries:  []allowlist.Entry{{ID: remoteID, Source: allowlist.SourceRemote, Version: "1.0"}},
	})

	records := b.Records()
	require.Len(t, records, 2)
	assert.Equal(t, string(remoteID), records[1].ID)
	assert.Equal(t, "remote", records[1].Source)
}

func TestHandler_ListExtensions(t *testing.T) {
	h := NewHandler(NewBridge(testRegistry(), false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/provider/extensions", nil)
	rec := httptest.NewRecorder()
	h.ListExtensions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			RemoteProvisioning bool     `json:"remote_provisioning"`
			Extensions         []Record `json:"extensions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.RemoteProvisioning)
	require.Len(t, resp.Data.Extensions, 1)
	assert.True(t, resp.Data.Extensions[0].AutoAcknowledge)
}
