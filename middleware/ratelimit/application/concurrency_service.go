package application

import (
	"context"
	"errors"
	"time"

	"proxy-gateway/middleware/ratelimit/domain"
)

// ErrOverloaded indica que não havia vaga dentro do prazo.
var ErrOverloaded = errors.New("gateway overloaded")

// ConcurrencyService decide se uma request entra no proxy agora.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// Wait <= 0 não espera: ou há vaga agora ou a request é recusada.
	Wait time.Duration
}

// Acquire devolve o release da vaga, ErrOverloaded, ou o erro do ctx quando o
// cliente desistiu durante a espera.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}
	if s.Wait <= 0 {
		if release, ok := s.Pool.TryAcquire(); ok {
			return release, nil
		}
		return nil, ErrOverloaded
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.Wait)
	defer cancel()
	if release, ok := s.Pool.Acquire(waitCtx); ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrOverloaded
}
