package ratelimit

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"proxy-gateway/middleware/ratelimit/application"
	"proxy-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	// Max <= 0 desliga o limite.
	Max          int
	RejectStatus int
	// AcquireTimeout <= 0 rejeita na hora quando não há vaga.
	AcquireTimeout time.Duration
	// OnReject é chamado para cada request recusada por falta de vaga.
	OnReject func(r *http.Request)
	Logger   *slog.Logger
}

// ConcurrencyLimiter recusa requests quando há Max em voo.
type ConcurrencyLimiter struct {
	opts  ConcurrencyOptions
	slots *infra.Slots
	svc   application.ConcurrencyService
}

// NewConcurrencyLimiter devolve nil quando o limite está desligado.
func NewConcurrencyLimiter(opts ConcurrencyOptions) *ConcurrencyLimiter {
	if opts.Max <= 0 {
		return nil
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	slots := infra.NewSlots(opts.Max)
	return &ConcurrencyLimiter{
		opts:  opts,
		slots: slots,
		svc:   application.ConcurrencyService{Pool: slots, Wait: opts.AcquireTimeout},
	}
}

func (c *ConcurrencyLimiter) InUse() int {
	if c == nil {
		return 0
	}
	return c.slots.InUse()
}

func (c *ConcurrencyLimiter) Handler(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		release, err := c.svc.Acquire(r.Context())
		if err != nil {
			if !errors.Is(err, application.ErrOverloaded) {
				// cliente desistiu esperando a vaga; ninguém lê a resposta
				c.opts.Logger.Debug("client left while waiting for a slot", "path", r.URL.Path, "error", err)
			}
			if c.opts.OnReject != nil {
				c.opts.OnReject(r)
			}
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(c.opts.RejectStatus), c.opts.RejectStatus)
			return
		}
		defer release()

		next.ServeHTTP(w, r)
	})
}
