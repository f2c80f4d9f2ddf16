package cache

import (
	"net/http"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration, opts ...Option) (*ResponseCache, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	rc, err := New(ttl, append([]Option{WithClock(mock), WithSweepEvery(0)}, opts...)...)
	require.NoError(t, err)
	return rc, mock
}

func TestResponseCache_MissOnEmpty(t *testing.T) {
	rc, _ := newTestCache(t, time.Minute)

	e, ok := rc.Lookup("nope")
	assert.False(t, ok)
	assert.Nil(t, e)
}

// A em t=0 armazena, B em t=100s é hit, C em t=300.001s é miss.
func TestResponseCache_TTLScenario(t *testing.T) {
	rc, mock := newTestCache(t, 300*time.Second)

	rc.Store("k", http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{"r":1}`))

	mock.Add(100 * time.Second)
	e, ok := rc.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"r":1}`), e.Body)
	assert.Equal(t, http.StatusOK, e.Status)

	mock.Add(200*time.Second + time.Millisecond)
	_, ok = rc.Lookup("k")
	assert.False(t, ok)
	assert.Equal(t, 0, rc.Len(), "stale entry must be removed on lookup")
}

func TestResponseCache_ExactlyAtTTLIsMiss(t *testing.T) {
	rc, mock := newTestCache(t, time.Minute)

	rc.Store("k", http.StatusOK, nil, []byte("x"))
	mock.Add(time.Minute)

	_, ok := rc.Lookup("k")
	assert.False(t, ok)
}

func TestResponseCache_StoreOverwritesAndRefreshesStoredAt(t *testing.T) {
	rc, mock := newTestCache(t, time.Minute)

	rc.Store("k", http.StatusOK, nil, []byte("old"))
	mock.Add(50 * time.Second)
	rc.Store("k", http.StatusOK, nil, []byte("new"))
	mock.Add(50 * time.Second)

	e, ok := rc.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), e.Body)
	assert.Equal(t, 1, rc.Len())
}

func TestResponseCache_StoredBytesAreNotAliased(t *testing.T) {
	rc, _ := newTestCache(t, time.Minute)

	body := []byte("hello")
	header := http.Header{"X-Test": {"a"}}
	rc.Store("k", http.StatusOK, header, body)

	body[0] = 'j'
	header.Set("X-Test", "b")

	first, ok := rc.Lookup("k")
	require.True(t, ok)
	second, ok := rc.Lookup("k")
	require.True(t, ok)

	assert.Equal(t, []byte("hello"), first.Body)
	assert.Equal(t, "a", first.Header.Get("X-Test"))
	assert.Equal(t, first.Body, second.Body)
}

func TestResponseCache_DropsHopByHopAndCookies(t *testing.T) {
	rc, _ := newTestCache(t, time.Minute)

	rc.Store("k", http.StatusOK, http.Header{
		"Set-Cookie":   {"session=1"},
		"Connection":   {"keep-alive"},
		"Content-Type": {"text/plain"},
	}, nil)

	e, ok := rc.Lookup("k")
	require.True(t, ok)
	assert.Empty(t, e.Header.Get("Set-Cookie"))
	assert.Empty(t, e.Header.Get("Connection"))
	assert.Equal(t, "text/plain", e.Header.Get("Content-Type"))
}

func TestResponseCache_EvictsLeastRecentlyUsed(t *testing.T) {
	rc, _ := newTestCache(t, time.Minute, WithMaxEntries(2))

	rc.Store("a", http.StatusOK, nil, nil)
	rc.Store("b", http.StatusOK, nil, nil)
	_, _ = rc.Lookup("a")
	rc.Store("c", http.StatusOK, nil, nil)

	_, okA := rc.Lookup("a")
	_, okB := rc.Lookup("b")
	_, okC := rc.Lookup("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}

func TestResponseCache_SweepRemovesOnlyStale(t *testing.T) {
	rc, mock := newTestCache(t, time.Minute)

	rc.Store("old", http.StatusOK, nil, nil)
	mock.Add(40 * time.Second)
	rc.Store("fresh", http.StatusOK, nil, nil)
	mock.Add(30 * time.Second)

	assert.Equal(t, 1, rc.Sweep())
	assert.Equal(t, 1, rc.Len())
}

func TestNew_RejectsNonPositiveMaxEntries(t *testing.T) {
	_, err := New(time.Minute, WithMaxEntries(0))
	assert.Error(t, err)
}

func TestNew_DefaultTTL(t *testing.T) {
	rc, err := New(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, rc.TTL())
}
