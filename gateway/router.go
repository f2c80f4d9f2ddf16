package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"proxy-gateway/middleware/cache"
	"proxy-gateway/middleware/ratelimit"
	"proxy-gateway/upstream"
)

const DefaultMaxRequestBody = 1 << 20

var errRequestTooLarge = errors.New("request body too large")

// Forwarder executa a chamada ao upstream. *upstream.Forwarder implementa.
type Forwarder interface {
	Forward(ctx context.Context, spec upstream.RequestSpec) upstream.Result
}

type RouterOptions struct {
	Auth Authenticator
	// Limiter nil desliga o rate limit.
	Limiter *ratelimit.Limiter
	// Cache nil desliga o cache.
	Cache        *cache.ResponseCache
	Keys         cache.KeyBuilder
	Policy       cache.Policy
	SingleFlight bool

	Forwarder Forwarder
	Upstream  *url.URL
	// Suffix extrai o trecho do path repassado ao upstream (rota com wildcard).
	Suffix         func(r *http.Request) string
	MaxRequestBody int64

	Metrics *Metrics
	Logger  *slog.Logger
}

// Router decide a resposta de cada request do proxy.
type Router struct {
	opts  RouterOptions
	group singleflight.Group
}

func NewRouter(opts RouterOptions) *Router {
	if opts.MaxRequestBody <= 0 {
		opts.MaxRequestBody = DefaultMaxRequestBody
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Router{opts: opts}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := rt.Handle(r)
	rt.opts.Metrics.observeOutcome(reply.Outcome)
	setOutcome(r.Context(), reply.Outcome)
	reply.WriteTo(w)
}

// Handle percorre a máquina de estados e sempre devolve uma resposta.
// Um panic em qualquer estágio vira 500.
func (rt *Router) Handle(r *http.Request) (out Reply) {
	reply := newReply()
	defer func() {
		if p := recover(); p != nil {
			rt.logger(r).Error("panic while handling request", "panic", p, "stack", string(debug.Stack()))
			failed := &Reply{Header: make(http.Header), Trace: reply.Trace}
			out = failed.text(OutcomeInternalError, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
	}()

	if !rt.opts.Auth.Check(r) {
		reply.Header.Set("WWW-Authenticate", "Bearer")
		return reply.text(OutcomeUnauthorized, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	if l := rt.opts.Limiter; l != nil {
		key, dec := l.Admit(r)
		l.SetHeaders(reply.Header, key, dec)
		reply.enter(StateRateChecked)
		if !dec.Allowed {
			return reply.text(OutcomeRateLimited, l.RejectStatus(), ratelimit.RejectMessage)
		}
	} else {
		reply.enter(StateRateChecked)
	}

	cacheable := rt.opts.Cache != nil && rt.opts.Policy.Cacheable(r.Method)
	var key cache.Key
	if cacheable {
		key = rt.opts.Keys.Build(r)
		if e, ok := rt.opts.Cache.Lookup(key); ok {
			rt.opts.Metrics.observeCache(true)
			reply.enter(StateCacheChecked)
			return reply.fromEntry(e)
		}
		rt.opts.Metrics.observeCache(false)
	}
	reply.enter(StateCacheChecked)

	spec, err := rt.requestSpec(r)
	if err != nil {
		rt.logger(r).Debug("rejecting request body", "error", err)
		status := http.StatusBadRequest
		if errors.Is(err, errRequestTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		return reply.text(OutcomeBadRequest, status, http.StatusText(status))
	}

	reply.enter(StateForwarding)
	res, shared := rt.forward(r.Context(), spec, key, cacheable)
	if !res.OK() {
		status, outcome := http.StatusBadGateway, OutcomeUpstreamUnreachable
		if res.Failure.Kind == upstream.KindTimeout {
			status, outcome = http.StatusGatewayTimeout, OutcomeUpstreamTimeout
		}
		rt.logger(r).Warn("upstream request failed",
			"kind", res.Failure.Kind.String(),
			"target", spec.URL,
			"error", res.Failure.Message,
		)
		return reply.text(outcome, status, http.StatusText(status))
	}
	if shared {
		rt.logger(r).Debug("upstream response shared", "key", string(key))
	}

	copyHeader(reply.Header, res.Response.Header)
	if cacheable {
		reply.Header.Set(CacheStatusHeader, "MISS")
	}
	reply.Status = res.Response.Status
	reply.Body = res.Response.Body
	return reply.done(OutcomeForwarded)
}

// forward chama o upstream fora do cancelamento do cliente: a resposta ainda
// serve o cache e as outras requests do mesmo grupo. O timeout do Forwarder
// continua valendo.
func (rt *Router) forward(ctx context.Context, spec upstream.RequestSpec, key cache.Key, cacheable bool) (upstream.Result, bool) {
	ctx = context.WithoutCancel(ctx)

	call := func() upstream.Result {
		start := time.Now()
		res := rt.opts.Forwarder.Forward(ctx, spec)
		rt.opts.Metrics.observeUpstream(res, time.Since(start))

		if cacheable && res.OK() && rt.opts.Policy.Eligible(res.Response.Status) {
			rt.opts.Cache.Store(key, res.Response.Status, res.Response.Header, res.Response.Body)
		}
		return res
	}

	if !cacheable || !rt.opts.SingleFlight {
		return call(), false
	}
	v, _, shared := rt.group.Do(string(key), func() (any, error) {
		return call(), nil
	})
	return v.(upstream.Result), shared
}

func (rt *Router) requestSpec(r *http.Request) (upstream.RequestSpec, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		b, err := io.ReadAll(io.LimitReader(r.Body, rt.opts.MaxRequestBody+1))
		if err != nil {
			return upstream.RequestSpec{}, fmt.Errorf("reading request body: %w", err)
		}
		if int64(len(b)) > rt.opts.MaxRequestBody {
			return upstream.RequestSpec{}, errRequestTooLarge
		}
		body = b
	}

	// o path repassado passa pela mesma normalização da chave de cache;
	// "/a//b/" e "/a/b" precisam chegar iguais ao upstream
	suffix := ""
	if rt.opts.Suffix != nil {
		suffix = strings.TrimPrefix(cache.NormalizePath(rt.opts.Suffix(r)), "/")
	}

	return upstream.RequestSpec{
		Method: r.Method,
		URL:    upstream.Target(rt.opts.Upstream, suffix, r.URL.RawQuery),
		Header: r.Header,
		Body:   body,
	}, nil
}

func (rt *Router) logger(r *http.Request) *slog.Logger {
	if id := RequestIDFrom(r.Context()); id != "" {
		return rt.opts.Logger.With("request_id", id)
	}
	return rt.opts.Logger
}
