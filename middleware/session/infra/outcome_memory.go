package infra

import (
	"context"
	"sync"

	"fault-testbed/middleware/session/domain"
)

// OutcomeCounts conta requisições por resultado.
type OutcomeCounts map[domain.Outcome]int64

func (c OutcomeCounts) clone() OutcomeCounts {
	out := make(OutcomeCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// MemoryOutcomeStore é uma implementação simples em memória.
// Útil para testes e para rodar o testbed sem Redis.
//
// Não faz expiração.
type MemoryOutcomeStore struct {
	mu      sync.Mutex
	total   OutcomeCounts
	byRoute map[string]OutcomeCounts
	byKey   map[string]OutcomeCounts

	trackKeys bool
}

type MemoryOutcomeOption func(*MemoryOutcomeStore)

func WithTrackKeys(track bool) MemoryOutcomeOption {
	return func(s *MemoryOutcomeStore) { s.trackKeys = track }
}

func NewMemoryOutcomeStore(opts ...MemoryOutcomeOption) *MemoryOutcomeStore {
	s := &MemoryOutcomeStore{
		total:   make(OutcomeCounts),
		byRoute: make(map[string]OutcomeCounts),
		byKey:   make(map[string]OutcomeCounts),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryOutcomeStore) Record(_ context.Context, ev domain.OutcomeEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	bump(s.byRoute, route, ev.Outcome)
	if s.trackKeys {
		bump(s.byKey, string(ev.Key), ev.Outcome)
	}
	return nil
}

func bump(m map[string]OutcomeCounts, k string, o domain.Outcome) {
	c, ok := m[k]
	if !ok {
		c = make(OutcomeCounts)
		m[k] = c
	}
	c[o]++
}

func (s *MemoryOutcomeStore) Total() OutcomeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total.clone()
}

func (s *MemoryOutcomeStore) ByRoute() map[string]OutcomeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]OutcomeCounts, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v.clone()
	}
	return out
}

func (s *MemoryOutcomeStore) ByKey() map[string]OutcomeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]OutcomeCounts, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v.clone()
	}
	return out
}

var _ domain.OutcomeStore = (*MemoryOutcomeStore)(nil)
