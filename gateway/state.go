package gateway

import (
	"net/http"
	"slices"

	"proxy-gateway/middleware/cache"
)

const CacheStatusHeader = "X-Cache-Status"

type State int

const (
	StateReceived State = iota
	StateRateChecked
	StateCacheChecked
	StateForwarding
	StateResponded
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateRateChecked:
		return "rate_checked"
	case StateCacheChecked:
		return "cache_checked"
	case StateForwarding:
		return "forwarding"
	case StateResponded:
		return "responded"
	default:
		return "unknown"
	}
}

// Outcome é o desfecho terminal de uma request.
type Outcome string

const (
	OutcomeUnauthorized        Outcome = "unauthorized"
	OutcomeRateLimited         Outcome = "rate_limited"
	OutcomeCacheHit            Outcome = "cache_hit"
	OutcomeForwarded           Outcome = "forwarded"
	OutcomeBadRequest          Outcome = "bad_request"
	OutcomeUpstreamUnreachable Outcome = "upstream_unreachable"
	OutcomeUpstreamTimeout     Outcome = "upstream_timeout"
	OutcomeInternalError       Outcome = "internal_error"
	// OutcomeOverloaded é decidido antes do Router, pelo limite de concorrência.
	OutcomeOverloaded Outcome = "overloaded"
)

// Reply é a resposta já decidida, antes de ir para o http.ResponseWriter.
type Reply struct {
	Status  int
	Header  http.Header
	Body    []byte
	Outcome Outcome
	// Trace são os estados percorridos, sempre terminando em StateResponded.
	Trace []State
}

func newReply() *Reply {
	return &Reply{Header: make(http.Header), Trace: []State{StateReceived}}
}

func (rp *Reply) enter(s State) {
	rp.Trace = append(rp.Trace, s)
}

func (rp *Reply) text(outcome Outcome, status int, msg string) Reply {
	rp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	rp.Header.Set("X-Content-Type-Options", "nosniff")
	rp.Status = status
	rp.Body = []byte(msg)
	return rp.done(outcome)
}

func (rp *Reply) fromEntry(e *cache.Entry) Reply {
	copyHeader(rp.Header, e.Header)
	rp.Header.Set(CacheStatusHeader, "HIT")
	rp.Status = e.Status
	rp.Body = e.Body
	return rp.done(OutcomeCacheHit)
}

func (rp *Reply) done(outcome Outcome) Reply {
	rp.enter(StateResponded)
	rp.Outcome = outcome
	return *rp
}

// WriteTo escreve a resposta. Body e headers de origem não são alterados.
func (rp Reply) WriteTo(w http.ResponseWriter) {
	h := w.Header()
	for k, vv := range rp.Header {
		// o id da request é do gateway, não do upstream
		if k == RequestIDHeader && h.Get(RequestIDHeader) != "" {
			continue
		}
		h[k] = slices.Clone(vv)
	}
	// o body pode ter sido descomprimido ou truncado; deixa o net/http calcular
	h.Del("Content-Length")

	w.WriteHeader(rp.Status)
	if len(rp.Body) > 0 {
		_, _ = w.Write(rp.Body)
	}
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		dst[k] = slices.Clone(vv)
	}
}
