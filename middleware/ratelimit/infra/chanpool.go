package infra

import (
	"context"
	"sync"

	"proxy-gateway/middleware/ratelimit/domain"
)

// Slots é um semáforo sobre channel bufferizado.
type Slots struct {
	sem chan struct{}
}

var _ domain.SlotPool = (*Slots)(nil)

func NewSlots(capacity int) *Slots {
	return &Slots{sem: make(chan struct{}, max(capacity, 1))}
}

func (s *Slots) Acquire(ctx context.Context) (func(), bool) {
	select {
	case s.sem <- struct{}{}:
		return s.releaser(), true
	default:
	}

	select {
	case s.sem <- struct{}{}:
		return s.releaser(), true
	case <-ctx.Done():
		return nil, false
	}
}

func (s *Slots) TryAcquire() (func(), bool) {
	select {
	case s.sem <- struct{}{}:
		return s.releaser(), true
	default:
		return nil, false
	}
}

func (s *Slots) InUse() int { return len(s.sem) }

func (s *Slots) Cap() int { return cap(s.sem) }

func (s *Slots) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-s.sem }) }
}
