package cache

import (
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 1000
	DefaultSweepEvery = time.Minute
)

// ResponseCache é um cache em memória com TTL e limite de entradas (LRU).
//
// Todas as operações passam por mu, então lookup-expira-remove e store são
// atômicos por chave. Em stores concorrentes para a mesma chave, o último vence.
type ResponseCache struct {
	mu         sync.Mutex
	lru        *simplelru.LRU[Key, *Entry]
	ttl        time.Duration
	maxEntries int
	sweepEvery time.Duration
	clock      clock.Clock
}

type Option func(*ResponseCache)

func WithClock(c clock.Clock) Option {
	return func(rc *ResponseCache) { rc.clock = c }
}

func WithMaxEntries(n int) Option {
	return func(rc *ResponseCache) { rc.maxEntries = n }
}

// WithSweepEvery define o intervalo da varredura. 0 desliga.
func WithSweepEvery(d time.Duration) Option {
	return func(rc *ResponseCache) { rc.sweepEvery = d }
}

func New(ttl time.Duration, opts ...Option) (*ResponseCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	rc := &ResponseCache{
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		sweepEvery: DefaultSweepEvery,
		clock:      clock.New(),
	}
	for _, opt := range opts {
		opt(rc)
	}

	lru, err := simplelru.NewLRU[Key, *Entry](rc.maxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: max entries %d: %w", rc.maxEntries, err)
	}
	rc.lru = lru
	return rc, nil
}

func (rc *ResponseCache) TTL() time.Duration { return rc.ttl }

// Lookup devolve a entrada se ainda estiver dentro do TTL.
// Entrada vencida é removida e conta como miss.
func (rc *ResponseCache) Lookup(key Key) (*Entry, bool) {
	now := rc.clock.Now()

	rc.mu.Lock()
	defer rc.mu.Unlock()

	e, ok := rc.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !e.Fresh(now, rc.ttl) {
		rc.lru.Remove(key)
		return nil, false
	}
	return e, true
}

// Store sobrescreve qualquer entrada da chave, com StoredAt = agora.
// Header e body são copiados; quem chamou pode reutilizar os seus.
func (rc *ResponseCache) Store(key Key, status int, header http.Header, body []byte) *Entry {
	e := &Entry{
		Key:      key,
		Status:   status,
		Header:   storableHeader(header),
		Body:     slices.Clone(body),
		StoredAt: rc.clock.Now(),
	}

	rc.mu.Lock()
	rc.lru.Add(key, e)
	rc.mu.Unlock()
	return e
}

func (rc *ResponseCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.lru.Len()
}

// Sweep remove todas as entradas vencidas e retorna quantas saíram.
func (rc *ResponseCache) Sweep() int {
	now := rc.clock.Now()

	rc.mu.Lock()
	defer rc.mu.Unlock()

	removed := 0
	for _, k := range rc.lru.Keys() {
		e, ok := rc.lru.Peek(k)
		if ok && !e.Fresh(now, rc.ttl) {
			rc.lru.Remove(k)
			removed++
		}
	}
	return removed
}

// StartSweeper roda Sweep periodicamente até ctx encerrar.
func (rc *ResponseCache) StartSweeper(ctx interface{ Done() <-chan struct{} }) {
	if rc.sweepEvery <= 0 {
		return
	}

	t := rc.clock.Ticker(rc.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				rc.Sweep()
			}
		}
	}()
}
