package infra

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"proxy-gateway/middleware/ratelimit/domain"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(window time.Duration, max int) (*Store, *clock.Mock) {
	mock := clock.NewMock()
	return NewStore(window, max, WithClock(mock), WithCleanupEvery(0)), mock
}

func TestStore_DefaultsWhenUnconfigured(t *testing.T) {
	s := NewStore(0, 0)
	assert.Equal(t, DefaultWindow, s.Window())
	assert.Equal(t, DefaultMaxRequests, s.Max())
}

func TestStore_AllowsUpToMaxThenDenies(t *testing.T) {
	s, _ := newMockStore(time.Minute, 3)

	for i := 1; i <= 3; i++ {
		dec := s.Admit("k")
		require.Truef(t, dec.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 3-i, dec.Remaining)
	}

	dec := s.Admit("k")
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
	assert.Equal(t, time.Minute, dec.RetryAfter)
}

func TestStore_DeniedDoesNotIncrement(t *testing.T) {
	s, _ := newMockStore(time.Minute, 2)

	s.Admit("k")
	s.Admit("k")
	for i := 0; i < 5; i++ {
		require.False(t, s.Admit("k").Allowed)
	}

	win, ok := s.Snapshot("k")
	require.True(t, ok)
	assert.Equal(t, 2, win.Count)
}

// 5 requests em t=0, a 6ª em t=1s é negada, a 7ª em t=61s abre nova janela.
func TestStore_FixedWindowScenario(t *testing.T) {
	s, mock := newMockStore(60*time.Second, 5)

	for i := 0; i < 5; i++ {
		require.True(t, s.Admit("client-x").Allowed)
	}

	mock.Add(1 * time.Second)
	dec := s.Admit("client-x")
	require.False(t, dec.Allowed)
	assert.Equal(t, 59*time.Second, dec.RetryAfter)

	mock.Add(60 * time.Second)
	dec = s.Admit("client-x")
	require.True(t, dec.Allowed)
	assert.Equal(t, 4, dec.Remaining)

	win, _ := s.Snapshot("client-x")
	assert.Equal(t, 1, win.Count, "count must only reflect post-reset requests")
}

func TestStore_KeysAreIndependent(t *testing.T) {
	s, _ := newMockStore(time.Minute, 1)

	assert.True(t, s.Admit("a").Allowed)
	assert.True(t, s.Admit("b").Allowed)
	assert.False(t, s.Admit("a").Allowed)
}

func TestStore_CleanupRemovesExpiredWindowsOnly(t *testing.T) {
	s, mock := newMockStore(time.Minute, 1)

	s.Admit("old")
	mock.Add(30 * time.Second)
	s.Admit("fresh")

	mock.Add(31 * time.Second)
	assert.Equal(t, 1, s.Cleanup())
	assert.Equal(t, 1, s.Len())

	_, ok := s.Snapshot("old")
	assert.False(t, ok)
	_, ok = s.Snapshot("fresh")
	assert.True(t, ok)
}

func TestStore_ConcurrentAdmitsNeverOvershoot(t *testing.T) {
	s, _ := newMockStore(time.Minute, 50)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Admit(domain.Key("same")).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowed.Load())
}

func TestStore_AdmitAfterCleanupStartsFresh(t *testing.T) {
	s, mock := newMockStore(time.Minute, 1)

	require.True(t, s.Admit("k").Allowed)
	require.False(t, s.Admit("k").Allowed)

	mock.Add(2 * time.Minute)
	s.Cleanup()

	assert.True(t, s.Admit("k").Allowed)
}
