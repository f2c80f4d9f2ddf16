package application

import (
	"time"

	"proxy-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store domain.WindowStore
	// MinRetryAfter é o piso do Retry-After quando a janela já está quase no fim.
	MinRetryAfter time.Duration
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.MinRetryAfter <= 0 {
		s.MinRetryAfter = 1 * time.Second
	}

	dec := s.Store.Admit(key)
	if dec.Allowed {
		dec.RetryAfter = 0
		return dec
	}
	if dec.RetryAfter < s.MinRetryAfter {
		dec.RetryAfter = s.MinRetryAfter
	}
	return dec
}

// RetryAfterSeconds arredonda para cima, já que Retry-After só aceita segundos inteiros.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
