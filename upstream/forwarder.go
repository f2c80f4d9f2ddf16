package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 10 << 20
)

// DefaultForwardHeaders é a allow-list padrão de headers repassados ao upstream.
var DefaultForwardHeaders = []string{"Accept", "Accept-Language", "Content-Type", "User-Agent"}

// RequestSpec descreve a request de saída.
type RequestSpec struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Options struct {
	// Client opcional; o timeout é aplicado via contexto em cada forward.
	Client         *http.Client
	Timeout        time.Duration
	MaxBodyBytes   int64
	ForwardHeaders []string
	// RPS > 0 liga um token bucket na saída para poupar o upstream.
	RPS   float64
	Burst int
}

// Forwarder faz exatamente uma chamada ao upstream por Forward, sem retry.
type Forwarder struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	allow        map[string]struct{}
	limiter      *rate.Limiter
}

func NewForwarder(opts Options) *Forwarder {
	if opts.Client == nil {
		opts.Client = &http.Client{
			// não segue redirect: o cliente recebe o 3xx como veio
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ForwardHeaders == nil {
		opts.ForwardHeaders = DefaultForwardHeaders
	}

	f := &Forwarder{
		client:       opts.Client,
		timeout:      opts.Timeout,
		maxBodyBytes: opts.MaxBodyBytes,
		allow:        make(map[string]struct{}, len(opts.ForwardHeaders)),
	}
	for _, h := range opts.ForwardHeaders {
		if h = strings.TrimSpace(h); h != "" {
			f.allow[http.CanonicalHeaderKey(h)] = struct{}{}
		}
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return f
}

func (f *Forwarder) Timeout() time.Duration { return f.timeout }

// Forward nunca retorna erro: falhas de transporte viram Result.Failure.
func (f *Forwarder) Forward(ctx context.Context, spec RequestSpec) Result {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return Fail(KindTimeout, "outbound throttle: "+err.Error())
		}
	}

	req, err := f.newRequest(ctx, spec)
	if err != nil {
		return Fail(KindUnreachable, err.Error())
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Fail(classify(err), err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return Fail(classify(err), "reading body: "+err.Error())
	}
	if int64(len(body)) > f.maxBodyBytes {
		return Fail(KindUnreachable, fmt.Sprintf("response body exceeds %d bytes", f.maxBodyBytes))
	}

	return Success(Response{
		Status: resp.StatusCode,
		Header: stripHopByHop(resp.Header),
		Body:   body,
	})
}

func (f *Forwarder) newRequest(ctx context.Context, spec RequestSpec) (*http.Request, error) {
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, vv := range spec.Header {
		if _, ok := f.allow[http.CanonicalHeaderKey(k)]; !ok {
			continue
		}
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindUnreachable
}

// Target junta a URL base, o resto do path da rota e a query original.
func Target(base *url.URL, suffix, rawQuery string) string {
	u := *base
	if suffix != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(suffix, "/")
		u.RawPath = ""
	}
	switch {
	case rawQuery == "":
	case u.RawQuery == "":
		u.RawQuery = rawQuery
	default:
		u.RawQuery = u.RawQuery + "&" + rawQuery
	}
	return u.String()
}

func stripHopByHop(header http.Header) http.Header {
	out := header.Clone()
	if out == nil {
		return make(http.Header)
	}

	// headers citados no Connection também são hop-by-hop
	for _, line := range header.Values("Connection") {
		for _, token := range strings.Split(line, ",") {
			if token = strings.TrimSpace(token); token != "" {
				out.Del(token)
			}
		}
	}
	for _, k := range []string{
		"Connection", "Proxy-Connection", "Keep-Alive",
		"Proxy-Authenticate", "Proxy-Authorization", "TE",
		"Trailer", "Transfer-Encoding", "Upgrade",
	} {
		out.Del(k)
	}
	return out
}
