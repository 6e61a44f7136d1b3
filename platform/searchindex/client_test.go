package searchindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster is a tiny in-memory stand-in for the Elasticsearch REST API.
type fakeCluster struct {
	mu      sync.Mutex
	indices map[string]map[string]json.RawMessage
	creates int
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{indices: map[string]map[string]json.RawMessage{}}
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"8.15.0"},"tagline":"You Know, for Search"}`)
	case parts[0] == "_cluster":
		_, _ = io.WriteString(w, `{"status":"yellow"}`)
	case len(parts) == 1 && r.Method == http.MethodHead:
		if _, ok := f.indices[parts[0]]; !ok {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.creates++
		f.indices[parts[0]] = map[string]json.RawMessage{}
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		idx := f.indices[parts[0]]
		if idx == nil {
			idx = map[string]json.RawMessage{}
			f.indices[parts[0]] = idx
		}
		idx[parts[2]] = body
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		idx := f.indices[parts[0]]
		if _, ok := idx[parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(idx, parts[2])
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	case len(parts) == 2 && parts[1] == "_search":
		idx := f.indices[parts[0]]
		hits := make([]map[string]any, 0, len(idx))
		for id, src := range idx {
			hits = append(hits, map[string]any{"_id": id, "_score": 1.0, "_source": src})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{"total": map[string]any{"value": len(hits)}, "hits": hits},
		})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{Addresses: []string{srv.URL}, PingTimeout: 500 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestEnsureIndexCreatesOnceAndCaches(t *testing.T) {
	cluster := newFakeCluster()
	client, _ := newTestClient(t, cluster)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.EnsureIndex(ctx, "leads", []byte(`{"mappings":{}}`)))
	require.NoError(t, client.EnsureIndex(ctx, "leads", []byte(`{"mappings":{}}`)))

	assert.Equal(t, 1, cluster.creates)
}

func TestUpsertIsKeyedByID(t *testing.T) {
	cluster := newFakeCluster()
	client, _ := newTestClient(t, cluster)
	ctx := context.Background()

	doc := map[string]any{"name": "Asha"}
	require.NoError(t, client.Upsert(ctx, "leads", "lead-1", doc))
	require.NoError(t, client.Upsert(ctx, "leads", "lead-1", doc))

	res, err := client.Search(ctx, "leads", map[string]any{"query": map[string]any{"match_all": map[string]any{}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "lead-1", res.Hits[0].ID)
}

func TestDeleteMissingDocumentIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, newFakeCluster())
	assert.NoError(t, client.Delete(context.Background(), "leads", "missing"))
}

func TestPingReportsUnavailable(t *testing.T) {
	client, srv := newTestClient(t, newFakeCluster())
	srv.Close()

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestClosedClientRefusesWork(t *testing.T) {
	client, _ := newTestClient(t, newFakeCluster())
	require.NoError(t, client.Close())

	err := client.Upsert(context.Background(), "leads", "x", map[string]any{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, IsUnavailable(err))
}
