package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"proxy-gateway/upstream"
)

// Metrics agrupa os coletores do gateway. Um *Metrics nil não registra nada.
type Metrics struct {
	requests *prometheus.CounterVec
	cache    *prometheus.CounterVec
	upstream *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "requests_total",
			Help:      "Requests do proxy por desfecho.",
		}, []string{"outcome"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "cache_lookups_total",
			Help:      "Consultas ao cache de respostas.",
		}, []string{"result"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "upstream_request_duration_seconds",
			Help:      "Duração das chamadas ao upstream.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.cache, m.upstream} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// trackInFlight expõe quantas requests do proxy estão em voo.
func (m *Metrics) trackInFlight(reg prometheus.Registerer, inUse func() int) error {
	if m == nil {
		return nil
	}
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "gateway",
		Name:      "inflight_requests",
		Help:      "Requests do proxy ocupando uma vaga de concorrência.",
	}, func() float64 { return float64(inUse()) }))
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *Metrics) observeUpstream(res upstream.Result, took time.Duration) {
	if m == nil {
		return
	}
	result := "error"
	switch {
	case res.OK():
		result = strconv.Itoa(res.Response.Status/100) + "xx"
	case res.Failure != nil:
		result = res.Failure.Kind.String()
	}
	m.upstream.WithLabelValues(result).Observe(took.Seconds())
}
