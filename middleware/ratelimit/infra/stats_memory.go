package infra

import (
	"context"
	"maps"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"proxy-gateway/middleware/ratelimit/domain"
)

// DefaultMaxTrackedKeys limita os clientes guardados quando trackKeys está ligado.
const DefaultMaxTrackedKeys = 10000

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

// StatsSnapshot é a leitura consolidada dos contadores.
type StatsSnapshot struct {
	Total   Counters            `json:"total"`
	ByRoute map[string]Counters `json:"by_route"`
	ByKey   map[string]Counters `json:"by_key,omitempty"`
}

// MemoryStatsStore guarda contadores em memória, sem expiração.
// É o padrão quando o Redis de estatísticas está desligado.
//
// byRoute é indexado pelo padrão da rota, então fica limitado às rotas
// registradas. byKey cresce com os clientes e por isso é um LRU.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   *simplelru.LRU[string, Counters]

	trackKeys bool
	maxKeys   int
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

// WithMaxTrackedKeys define quantos clientes ficam em ByKey; os menos
// recentes saem primeiro. n <= 0 usa DefaultMaxTrackedKeys.
func WithMaxTrackedKeys(n int) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.maxKeys = n }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{byRoute: make(map[string]Counters)}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxKeys <= 0 {
		s.maxKeys = DefaultMaxTrackedKeys
	}
	// só falha com tamanho <= 0
	s.byKey, _ = simplelru.NewLRU[string, Counters](s.maxKeys, nil)
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := routeField(ev.Method, ev.Path)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)
	if route != "" {
		c := s.byRoute[route]
		c.add(ev.Allowed)
		s.byRoute[route] = c
	}
	if s.trackKeys && ev.Key != "" {
		k, _ := s.byKey.Get(string(ev.Key))
		k.add(ev.Allowed)
		s.byKey.Add(string(ev.Key), k)
	}
	return nil
}

func (s *MemoryStatsStore) Snapshot(context.Context) (StatsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Total:   s.total,
		ByRoute: maps.Clone(s.byRoute),
		ByKey:   s.keysLocked(),
	}, nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byRoute)
}

func (s *MemoryStatsStore) ByKey() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked()
}

func (s *MemoryStatsStore) keysLocked() map[string]Counters {
	out := make(map[string]Counters, s.byKey.Len())
	for _, k := range s.byKey.Keys() {
		if c, ok := s.byKey.Peek(k); ok {
			out[k] = c
		}
	}
	return out
}
