package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proxy-gateway/internal/config"
	"proxy-gateway/middleware/cache"
	"proxy-gateway/middleware/ratelimit"
	"proxy-gateway/middleware/ratelimit/domain"
	"proxy-gateway/middleware/ratelimit/infra"
	"proxy-gateway/upstream"
)

// Gateway junta as peças configuradas e expõe o http.Handler final.
type Gateway struct {
	cfg     config.Config
	store   *infra.Store
	stats   StatsReader
	cache   *cache.ResponseCache
	router  *Router
	metrics *Metrics
	handler http.Handler
	logger  *slog.Logger
}

type buildOptions struct {
	clock     clock.Clock
	registry  *prometheus.Registry
	stats     domain.StatsStore
	client    *http.Client
	forwarder Forwarder
	logger    *slog.Logger
}

type Option func(*buildOptions)

func WithClock(c clock.Clock) Option {
	return func(o *buildOptions) { o.clock = c }
}

// WithRegistry usa um registry externo (ex.: com os coletores de processo).
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *buildOptions) { o.registry = reg }
}

// WithStats troca o store de estatísticas em memória por outro, como o do
// Redis. Se ele implementar StatsReader, continua exposto em /stats.
func WithStats(s domain.StatsStore) Option {
	return func(o *buildOptions) { o.stats = s }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *buildOptions) { o.client = c }
}

// WithForwarder troca o cliente upstream inteiro; usado em testes.
func WithForwarder(f Forwarder) Option {
	return func(o *buildOptions) { o.forwarder = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

func New(cfg config.Config, opts ...Option) (*Gateway, error) {
	o := buildOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	base, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream url: %w", err)
	}

	g := &Gateway{cfg: cfg, logger: o.logger}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		if o.stats == nil {
			o.stats = infra.NewMemoryStatsStore(
				infra.WithTrackKeys(cfg.Stats.TrackKeys),
				infra.WithMaxTrackedKeys(cfg.Stats.MaxKeys),
			)
		}
		g.stats, _ = o.stats.(StatsReader)
		g.store = infra.NewStore(cfg.RateLimit.Window, cfg.RateLimit.Max,
			infra.WithClock(o.clock),
			infra.WithCleanupEvery(cfg.RateLimit.CleanupEvery),
		)
		limiter = ratelimit.NewLimiter(ratelimit.Options{
			Store:               g.store,
			Stats:               o.stats,
			KeyHeader:           cfg.RateLimit.KeyHeader,
			TrustedProxyHops:    cfg.RateLimit.TrustedProxyHops,
			AddRateLimitHeaders: cfg.RateLimit.AddHeaders,
			Clock:               o.clock,
			Logger:              o.logger,
		})
	}

	if cfg.Cache.Enabled {
		g.cache, err = cache.New(cfg.Cache.TTL,
			cache.WithClock(o.clock),
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithSweepEvery(cfg.Cache.SweepEvery),
		)
		if err != nil {
			return nil, fmt.Errorf("creating response cache: %w", err)
		}
	}

	fwd := o.forwarder
	if fwd == nil {
		fwd = upstream.NewForwarder(upstream.Options{
			Client:         o.client,
			Timeout:        cfg.Upstream.Timeout,
			MaxBodyBytes:   cfg.Upstream.MaxBodyBytes,
			ForwardHeaders: cfg.Upstream.ForwardHeaders,
			RPS:            cfg.Upstream.RPS,
			Burst:          cfg.Upstream.Burst,
		})
	}

	if cfg.Metrics.Enabled {
		g.metrics, err = NewMetrics(o.registry)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	var suffix func(*http.Request) string
	if strings.HasSuffix(cfg.Proxy.Path, "/*") {
		suffix = func(r *http.Request) string { return chi.URLParam(r, "*") }
	}

	g.router = NewRouter(RouterOptions{
		Auth:    NewAuthenticator(cfg.Auth.APIKey),
		Limiter: limiter,
		Cache:   g.cache,
		Keys: cache.KeyBuilder{
			QueryParams: cfg.Cache.KeyQuery,
			Headers:     cfg.Cache.KeyHeaders,
		},
		Policy: cache.Policy{
			Methods:   cfg.Cache.Methods,
			MinStatus: cfg.Cache.StatusMin,
			MaxStatus: cfg.Cache.StatusMax,
		},
		SingleFlight: cfg.Cache.SingleFlight,
		Forwarder:    fwd,
		Upstream:     base,
		Suffix:       suffix,
		Metrics:      g.metrics,
		Logger:       o.logger,
	})

	slots := ratelimit.NewConcurrencyLimiter(ratelimit.ConcurrencyOptions{
		Max:            cfg.Concurrency.Max,
		AcquireTimeout: cfg.Concurrency.AcquireTimeout,
		OnReject: func(r *http.Request) {
			g.metrics.observeOutcome(OutcomeOverloaded)
			setOutcome(r.Context(), OutcomeOverloaded)
		},
		Logger: o.logger,
	})
	if slots != nil {
		if err := g.metrics.trackInFlight(o.registry, slots.InUse); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	g.handler = g.routes(o.registry, slots)
	return g, nil
}

func (g *Gateway) routes(reg *prometheus.Registry, slots *ratelimit.ConcurrencyLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, AccessLog(g.logger, g.cfg.RateLimit.TrustedProxyHops))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if g.stats != nil {
		r.Get("/stats", statsHandler(g.stats, g.logger))
	}
	if g.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, g.cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	proxy := slots.Handler(g.router)

	if g.cfg.Proxy.Method == "*" {
		r.Handle(g.cfg.Proxy.Path, proxy)
	} else {
		r.Method(g.cfg.Proxy.Method, g.cfg.Proxy.Path, proxy)
	}
	return r
}

func (g *Gateway) Handler() http.Handler { return g.handler }

func (g *Gateway) Router() *Router { return g.router }

// Start liga as rotinas de limpeza; elas param quando ctx termina.
func (g *Gateway) Start(ctx context.Context) {
	if g.store != nil {
		g.store.StartJanitor(ctx)
	}
	if g.cache != nil {
		g.cache.StartSweeper(ctx)
	}
}

// Summary devolve atributos de log com o que está ligado.
func (g *Gateway) Summary() []any {
	return []any{
		"proxy", g.cfg.Proxy.Method + " " + g.cfg.Proxy.Path,
		"upstream", g.cfg.Upstream.URL,
		"auth", g.router.opts.Auth.Enabled(),
		"rate_limit", g.store != nil,
		"cache", g.cache != nil,
		"concurrency_max", g.cfg.Concurrency.Max,
		"metrics", g.cfg.Metrics.Enabled,
	}
}
