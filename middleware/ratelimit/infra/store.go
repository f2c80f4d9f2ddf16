package infra

import (
	"sync"
	"time"

	"proxy-gateway/middleware/ratelimit/domain"

	"github.com/benbjohnson/clock"
)

const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 5
)

// Store é um contador de janela fixa por chave, com limpeza periódica.
//
// O map é protegido por mu; cada janela tem seu próprio lock, então chaves
// diferentes não disputam entre si.
type Store struct {
	mu           sync.Mutex
	entries      map[string]*windowEntry
	window       time.Duration
	max          int
	cleanupEvery time.Duration
	clock        clock.Clock
}

type windowEntry struct {
	mu      sync.Mutex
	win     domain.Window
	evicted bool
}

type StoreOption func(*Store)

// WithCleanupEvery define o intervalo do janitor. 0 desliga.
func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

func WithClock(c clock.Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

// NewStore cria o store. window <= 0 e max <= 0 caem nos padrões (60s, 5).
func NewStore(window time.Duration, max int, opts ...StoreOption) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	s := &Store{
		entries:      make(map[string]*windowEntry),
		window:       window,
		max:          max,
		cleanupEvery: window,
		clock:        clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Window() time.Duration       { return s.window }
func (s *Store) Max() int                    { return s.max }
func (s *Store) CleanupEvery() time.Duration { return s.cleanupEvery }

// Admit implementa domain.WindowStore.
func (s *Store) Admit(key domain.Key) domain.Decision {
	for {
		ent := s.entry(string(key))

		ent.mu.Lock()
		if ent.evicted {
			// o janitor removeu entre o lookup e o lock; pega a nova
			ent.mu.Unlock()
			continue
		}
		dec := s.admitLocked(ent, s.clock.Now())
		ent.mu.Unlock()
		return dec
	}
}

func (s *Store) admitLocked(ent *windowEntry, now time.Time) domain.Decision {
	if ent.win.Start.IsZero() || now.Sub(ent.win.Start) >= s.window {
		ent.win = domain.Window{Start: now}
	}

	resetAt := ent.win.Start.Add(s.window)
	if ent.win.Count >= s.max {
		return domain.Decision{
			Allowed:    false,
			Limit:      s.max,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	ent.win.Count++
	return domain.Decision{
		Allowed:   true,
		Limit:     s.max,
		Remaining: s.max - ent.win.Count,
		ResetAt:   resetAt,
	}
}

func (s *Store) entry(key string) *windowEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		return ent
	}
	ent := &windowEntry{}
	s.entries[key] = ent
	return ent
}

// Snapshot devolve a janela atual da chave, se existir.
func (s *Store) Snapshot(key domain.Key) (domain.Window, bool) {
	s.mu.Lock()
	ent, ok := s.entries[string(key)]
	s.mu.Unlock()
	if !ok {
		return domain.Window{}, false
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.win, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove janelas já vencidas (cliente inativo por mais de uma janela).
// Retorna quantas foram removidas.
func (s *Store) Cleanup() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		ent.mu.Lock()
		if ent.win.Start.IsZero() || now.Sub(ent.win.Start) >= s.window {
			ent.evicted = true
			delete(s.entries, k)
			removed++
		}
		ent.mu.Unlock()
	}
	return removed
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *Store) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := s.clock.Ticker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}
