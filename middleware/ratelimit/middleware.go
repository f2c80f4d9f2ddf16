package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"

	"proxy-gateway/middleware/ratelimit/application"
	"proxy-gateway/middleware/ratelimit/domain"
)

const RejectMessage = "Too many requests, please try again later."

type Options struct {
	Store               domain.WindowStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustedProxyHops    int
	RejectStatus        int
	MinRetryAfter       time.Duration
	AddRateLimitHeaders bool
	// Clock marca os eventos de stats; nil usa o relógio real.
	Clock               clock.Clock
	Logger              *slog.Logger
}

// Limiter é o estágio de rate limit: extrai a chave, decide e registra stats.
type Limiter struct {
	opts Options
	svc  application.Service
}

func NewLimiter(opts Options) *Limiter {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustedProxyHops)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	return &Limiter{
		opts: opts,
		svc: application.Service{
			Store:         opts.Store,
			MinRetryAfter: opts.MinRetryAfter,
		},
	}
}

func (l *Limiter) RejectStatus() int { return l.opts.RejectStatus }

// Admit decide a request e devolve a chave usada.
func (l *Limiter) Admit(r *http.Request) (string, domain.Decision) {
	key := l.opts.KeyFn(r)
	dec := l.svc.Decide(domain.Key(key))

	if l.opts.Stats != nil {
		err := l.opts.Stats.Record(r.Context(), domain.StatsEvent{
			Key:       domain.Key(key),
			Allowed:   dec.Allowed,
			Remaining: dec.Remaining,
			Method:    r.Method,
			Path:      routePattern(r),
			At:        l.opts.Clock.Now(),
		})
		if err != nil {
			l.opts.Logger.Warn("rate limit stats not recorded", "key", key, "error", err)
		}
	}
	return key, dec
}

// SetHeaders traduz a decisão para headers HTTP.
func (l *Limiter) SetHeaders(h http.Header, key string, dec domain.Decision) {
	if l.opts.AddRateLimitHeaders {
		h.Set("X-RateLimit-Key", key)
		if dec.Limit > 0 {
			h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
			h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
		}
		if !dec.ResetAt.IsZero() {
			h.Set("X-RateLimit-Reset", formatInt64(dec.ResetAt.Unix()))
		}
	}
	if !dec.Allowed {
		h.Set("Retry-After", formatInt(application.RetryAfterSeconds(dec.RetryAfter)))
	}
}

// routePattern devolve o padrão registrado no chi ("/api/*"), nunca o path
// pedido: o path é do cliente e não pode virar chave de estatística.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
