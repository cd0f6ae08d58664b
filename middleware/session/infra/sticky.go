package infra

import (
	"sync"
	"time"

	"fault-testbed/middleware/session/domain"
)

// StickyRegistry lembra chaves que tomaram timeout de admissão recentemente.
//
// Enquanto a entrada estiver dentro da janela, a varredura não despeja o slot
// dessa chave (se ela tiver um). O registro nunca cria nem remove slots.
// Com window <= 0 o registro fica inerte.
type StickyRegistry struct {
	mu      sync.Mutex
	entries map[domain.Key]time.Time
	window  time.Duration
	now     domain.Clock
}

type StickyOption func(*StickyRegistry)

func WithStickyClock(c domain.Clock) StickyOption {
	return func(r *StickyRegistry) { r.now = c }
}

func NewStickyRegistry(window time.Duration, opts ...StickyOption) *StickyRegistry {
	r := &StickyRegistry{
		entries: make(map[domain.Key]time.Time),
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *StickyRegistry) Window() time.Duration { return r.window }

// Mark grava (ou sobrescreve) key -> agora.
func (r *StickyRegistry) Mark(key domain.Key) {
	if r.window <= 0 {
		return
	}
	now := r.now()

	r.mu.Lock()
	r.entries[key] = now
	r.mu.Unlock()
}

// Suppressed diz se a chave ainda está dentro da janela. Entradas vencidas
// são removidas aqui mesmo.
func (r *StickyRegistry) Suppressed(key domain.Key, now time.Time) bool {
	if r.window <= 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts, ok := r.entries[key]
	if !ok {
		return false
	}
	if now.Sub(ts) < r.window {
		return true
	}
	delete(r.entries, key)
	return false
}

// Prune remove todas as entradas vencidas em now, inclusive de chaves que
// nunca voltaram a ter slot. Retorna quantas foram removidas.
func (r *StickyRegistry) Prune(now time.Time) int {
	if r.window <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, ts := range r.entries {
		if now.Sub(ts) >= r.window {
			delete(r.entries, k)
			n++
		}
	}
	return n
}

func (r *StickyRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var _ domain.StickyRegistry = (*StickyRegistry)(nil)
