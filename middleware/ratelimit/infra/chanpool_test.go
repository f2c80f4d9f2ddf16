package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsTryAcquire(t *testing.T) {
	s := NewSlots(2)
	assert.Equal(t, 2, s.Cap())

	r1, ok := s.TryAcquire()
	require.True(t, ok)
	r2, ok := s.TryAcquire()
	require.True(t, ok)
	assert.Equal(t, 2, s.InUse())

	_, ok = s.TryAcquire()
	assert.False(t, ok)

	r1()
	assert.Equal(t, 1, s.InUse())
	r2()
	assert.Equal(t, 0, s.InUse())
}

func TestSlotsDoubleReleaseIsIgnored(t *testing.T) {
	s := NewSlots(2)

	r1, _ := s.TryAcquire()
	_, _ = s.TryAcquire()
	r1()
	r1()

	assert.Equal(t, 1, s.InUse())
}

func TestSlotsAcquireWaitsForRelease(t *testing.T) {
	s := NewSlots(1)
	release, _ := s.TryAcquire()

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r, ok := s.Acquire(ctx)
	require.True(t, ok)
	r()
}

func TestSlotsAcquireGivesUpWithContext(t *testing.T) {
	s := NewSlots(1)
	_, _ = s.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok := s.Acquire(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, s.InUse())
}

func TestNewSlotsMinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewSlots(0).Cap())
}
