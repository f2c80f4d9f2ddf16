package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-gateway/internal/config"
	"proxy-gateway/middleware/ratelimit/infra"
)

func TestStatsEndpoint(t *testing.T) {
	g, _ := newTestGateway(t, map[string]string{
		"RATE_LIMIT_MAX":        "1",
		"RATE_STATS_TRACK_KEYS": "true",
	}, okForwarder(`{}`))

	do(g, http.MethodGet, "/proxy")
	do(g, http.MethodGet, "/proxy")

	rec := do(g, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var view infra.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(1), view.Total.Allowed)
	assert.Equal(t, int64(1), view.Total.Denied)
	assert.Equal(t, int64(2), view.ByRoute["GET /proxy"].Allowed+view.ByRoute["GET /proxy"].Denied)
	assert.Contains(t, view.ByKey, "192.0.2.1")
}

func TestStatsGroupWildcardPathsByRoutePattern(t *testing.T) {
	g, _ := newTestGateway(t, map[string]string{
		"PROXY_PATH":     "/api/*",
		"RATE_LIMIT_MAX": "2",
	}, okForwarder(`{}`))

	for _, p := range []string{"/api/a", "/api/b", "/api/c/d", "/api/e"} {
		do(g, http.MethodGet, p)
	}

	rec := do(g, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var view infra.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, map[string]infra.Counters{"GET /api/*": {Allowed: 2, Denied: 2}}, view.ByRoute)
}

func TestStatsEndpointAbsentWithoutRateLimit(t *testing.T) {
	g, _ := newTestGateway(t, map[string]string{"RATE_LIMIT_ENABLED": "false"}, okForwarder(`{}`))

	assert.Equal(t, http.StatusNotFound, do(g, http.MethodGet, "/stats").Code)
}

func TestStatsBackendDownDoesNotBreakProxy(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg, err := config.FromLookup(lookup(nil))
	require.NoError(t, err)
	g, err := New(cfg,
		WithForwarder(okForwarder(`{}`)),
		WithStats(infra.NewRedisStatsStore(rdb)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(g, http.MethodGet, "/proxy").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(g, http.MethodGet, "/stats").Code)
}
