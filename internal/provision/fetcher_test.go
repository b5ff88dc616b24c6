package provision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extgov-platform/extgov/internal/allowlist"
)

const (
	tbaseID   = "abcdefghijklmnopabcdefghijklmnop"
	tremoteID = "aabbccddeeffaabbccddeeffaabbccdd"
	tremote2  = "ppoonnmmllkkjjiihhggffeeddccbbaa"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	oldBase, oldMax := backoffBase, backoffMax
	backoffBase = time.Millisecond
	backoffMax = 5 * time.Millisecond
	t.Cleanup(func() { backoffBase, backoffMax = oldBase, oldMax })
}

func testRegistry() *allowlist.Registry {
	return allowlist.NewRegistry([]allowlist.Entry{
		{ID: tbaseID, Source: allowlist.SourceStatic, Location: "https://example.test/base.xml"},
	})
}

func newTestFetcher(t *testing.T, url string, reg *allowlist.Registry, cache *Cache) *Fetcher {
	t.Helper()
	fastBackoff(t)
	return NewFetcher(url, 2*time.Second, 3, reg, cache)
}

func TestFetchAndUpdate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries":[
			{"id":"` + tremoteID + `","location":"https://example.test/r.xml","version":"1.0.0"},
			{"id":"` + tremote2 + `"}
		]}`))
	}))
	defer srv.Close()

	reg := testRegistry()
	f := newTestFetcher(t, srv.URL, reg, nil)

	res, err := f.FetchAndUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 0, res.Skipped)
	assert.Len(t, res.Remote.Entries, 2)
	assert.NotEmpty(t, res.Remote.Revision)

	assert.True(t, reg.IsProtected(tremoteID))
	assert.True(t, reg.IsProtected(tbaseID))
	assert.Equal(t, 3, reg.Snapshot().Len())
}

func TestFetchAndUpdate_BareArrayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"` + tremoteID + `"}]`))
	}))
	defer srv.Close()

	reg := testRegistry()
	f := newTestFetcher(t, srv.URL, reg, nil)

	res, err := f.FetchAndUpdate(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Remote.Entries, 1)
}

func TestFetchAndUpdate_SkipsMalformedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries":[
			{"id":"` + tremoteID + `"},
			{"id":"not-a-valid-id"},
			{"id":"` + tremote2 + `","version":"2.0"},
			{"location":"https://example.test/no-id.xml"},
			{"id":"nopanopanopanopanopanopanopanopa"}
		]}`))
	}))
	defer srv.Close()

	reg := testRegistry()
	f := newTestFetcher(t, srv.URL, reg, nil)

	res, err := f.FetchAndUpdate(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Remote.Entries, 3)
	assert.Equal(t, 2, res.Skipped)

	snap := reg.Snapshot()
	assert.Equal(t, 4, snap.Len())
	assert.False(t, snap.Contains("not-a-valid-id"))
}

func TestFetchAndUpdate_AllMalformedIsParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries":[{"id":"bad"},{"id":"worse"}]}`))
	}))
	defer srv.Close()

	reg := testRegistry()
	// Seed an active remote config that must survive the bad fetch.
	reg.Publish(&allowlist.RemoteConfig{Revision: "rev-keep", Entries: []allowlist.Entry{{ID: tremoteID}}})
	before := reg.Snapshot()

	f := newTestFetcher(t, srv.URL, reg, nil)
	_, err := f.FetchAndUpdate(context.Background())

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FailParse, fe.Kind)

	after := reg.Snapshot()
	assert.Equal(t, before.Seq, after.Seq, "failed fetch must not publish")
	assert.True(t, reg.IsProtected(tremoteID))
}

func TestFetchAndUpdate_NonJSONBodyIsParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, testRegistry(), nil)
	_, err := f.FetchAndUpdate(context.Background())

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FailParse, fe.Kind)
}

func TestFetchAndUpdate_TransientExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := testRegistry()
	before := reg.Snapshot()

	f := newTestFetcher(t, srv.URL, reg, nil)
	_, err := f.FetchAndUpdate(context.Background())

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FailTransient, fe.Kind)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, int32(3), hits.Load())

	assert.Equal(t, before.Seq, reg.Snapshot().Seq)
	assert.True(t, reg.IsProtected(tbaseID), "baseline protected regardless of fetch outcome")
}

func TestFetchAndUpdate_429IsTransient(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"entries":[{"id":"` + tremoteID + `"}]}`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, testRegistry(), nil)
	res, err := f.FetchAndUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
}

func TestFetchAndUpdate_PermanentAbortsImmediately(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, testRegistry(), nil)
	_, err := f.FetchAndUpdate(context.Background())

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FailPermanent, fe.Kind)
	assert.Equal(t, int32(1), hits.Load(), "4xx must not be retried")
}

func TestFetchAndUpdate_BaselineWinsOverRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries":[
			{"id":"` + tbaseID + `","location":"https://attacker.test/u.xml"},
			{"id":"` + tremoteID + `"}
		]}`))
	}))
	defer srv.Close()

	reg := testRegistry()
	f := newTestFetcher(t, srv.URL, reg, nil)

	res, err := f.FetchAndUpdate(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Remote.Entries, 1, "baseline-shadowing entry dropped before publish")

	for _, e := range reg.Snapshot().Entries() {
		if e.ID == tbaseID {
			assert.Equal(t, "https://example.test/base.xml", e.Location)
			assert.Equal(t, allowlist.SourceStatic, e.Source)
		}
	}
}

func TestFetchAndUpdate_Idempotent(t *testing.T) {
	body := `{"entries":[{"id":"` + tremoteID + `","version":"1.0"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	reg := testRegistry()
	f := newTestFetcher(t, srv.URL, reg, nil)

	res1, err := f.FetchAndUpdate(context.Background())
	require.NoError(t, err)
	snap1 := reg.Snapshot()

	res2, err := f.FetchAndUpdate(context.Background())
	require.NoError(t, err)
	snap2 := reg.Snapshot()

	assert.Equal(t, res1.Remote.Revision, res2.Remote.Revision)
	assert.Equal(t, res1.Remote.Entries, res2.Remote.Entries)
	assert.Equal(t, snap1.Entries(), snap2.Entries(), "identical content yields content-equal snapshots")
	assert.Greater(t, snap2.Seq, snap1.Seq)
}

func TestFetchAndUpdate_WritesDiskCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entries":[{"id":"` + tremoteID + `","version":"3.1"}]}`))
	}))
	defer srv.Close()

	cache := NewCache(filepath.Join(t.TempDir(), "sub", "remote-config.json"))
	f := newTestFetcher(t, srv.URL, testRegistry(), cache)

	res, err := f.FetchAndUpdate(context.Background())
	require.NoError(t, err)

	restored, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, res.Remote.Revision, restored.Revision)
	require.Len(t, restored.Entries, 1)
	assert.Equal(t, allowlist.ID(tremoteID), restored.Entries[0].ID)
	assert.Equal(t, "3.1", restored.Entries[0].Version)
}
