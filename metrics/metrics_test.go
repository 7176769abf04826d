package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/beak/cache"
	"github.com/opd-ai/beak/engine"
	"github.com/opd-ai/beak/transport"
)

type fakeEngine struct {
	stats      engine.Stats
	configured bool
}

func (f *fakeEngine) Stats() engine.Stats { return f.stats }
func (f *fakeEngine) Configured() bool    { return f.configured }

type fakeCache struct{ stats cache.Stats }

func (f *fakeCache) Stats() cache.Stats { return f.stats }

type fakeServer struct{ stats transport.ServerStats }

func (f *fakeServer) Stats() transport.ServerStats { return f.stats }

func testSources() (Sources, *fakeEngine) {
	eng := &fakeEngine{
		configured: true,
		stats:      engine.Stats{Nodes: 5, Connections: 4, Played: 7, Removed: 6, Blocks: 1000},
	}
	return Sources{
		Engine: eng,
		Cache:  &fakeCache{stats: cache.Stats{Entries: 3, Hits: 10, Misses: 3, BreakerState: "closed"}},
		Server: &fakeServer{stats: transport.ServerStats{Received: 12, Malformed: 1, Handled: 11}},
	}, eng
}

func TestCollector_Collect(t *testing.T) {
	src, _ := testSources()
	c := NewCollector(src)

	expected := `
# HELP beak_engine_played_total One-shot playbacks started
# TYPE beak_engine_played_total counter
beak_engine_played_total 7
# HELP beak_graph_nodes Nodes currently in the render graph
# TYPE beak_graph_nodes gauge
beak_graph_nodes 5
# HELP beak_cache_lookups_total Cache lookups by result
# TYPE beak_cache_lookups_total counter
beak_cache_lookups_total{result="hit"} 10
beak_cache_lookups_total{result="miss"} 3
# HELP beak_cache_breaker_state Download circuit breaker state
# TYPE beak_cache_breaker_state gauge
beak_cache_breaker_state{state="closed"} 1
beak_cache_breaker_state{state="half-open"} 0
beak_cache_breaker_state{state="open"} 0
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"beak_engine_played_total", "beak_graph_nodes", "beak_cache_lookups_total", "beak_cache_breaker_state")
	assert.NoError(t, err)
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(`
# HELP beak_control_packets_total Control packets by outcome
# TYPE beak_control_packets_total counter
beak_control_packets_total{outcome="dropped"} 0
beak_control_packets_total{outcome="failed"} 0
beak_control_packets_total{outcome="handled"} 11
beak_control_packets_total{outcome="malformed"} 1
beak_control_packets_total{outcome="received"} 12
beak_control_packets_total{outcome="unhandled"} 0
`), "beak_control_packets_total"))
}

func TestCollector_SkipsMissingSources(t *testing.T) {
	c := NewCollector(Sources{Cache: &fakeCache{stats: cache.Stats{BreakerState: "open"}}})
	// entries, fetches, 2 lookups, not modified, 3 breaker states
	assert.Equal(t, 8, testutil.CollectAndCount(c))
}

func TestRouter_Endpoints(t *testing.T) {
	src, eng := testSources()
	reg, err := NewRegistry(NewCollector(src))
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(reg, eng))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	tests := []struct {
		name       string
		path       string
		configured bool
		wantCode   int
		wantBody   string
	}{
		{"health", "/health", true, http.StatusOK, `"healthy"`},
		{"ready", "/ready", true, http.StatusOK, `"ready"`},
		{"not ready", "/ready", false, http.StatusServiceUnavailable, `"not ready"`},
		{"metrics", "/metrics", true, http.StatusOK, "beak_graph_blocks_total 1000"},
		{"runtime metrics", "/metrics", true, http.StatusOK, "go_goroutines"},
		{"unknown", "/nope", true, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng.configured = tt.configured
			code, body := get(tt.path)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, body, tt.wantBody)
		})
	}
}

func TestServer_Serve(t *testing.T) {
	src, eng := testSources()
	reg, err := NewRegistry(NewCollector(src))
	require.NoError(t, err)

	s, err := Listen("127.0.0.1:0", NewRouter(reg, eng))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
