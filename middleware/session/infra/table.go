package infra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fault-testbed/middleware/session/domain"
)

const pageSize = 4096

// SessionTable é a tabela de slots com capacidade fixa (MaxSessions).
//
// Cada slot reserva PerSessionBytes de memória na criação. Não há release explícito:
// slots só saem pela varredura (Sweep), quando ficam inativos por mais de SessionTTL
// e a chave não está protegida pelo registro sticky.
type SessionTable struct {
	mu    sync.Mutex
	slots map[domain.Key]*slot
	// freed é fechado (e trocado) sempre que a varredura remove algum slot.
	freed chan struct{}

	maxSessions     int
	perSessionBytes int
	ttl             time.Duration
	sweepEvery      time.Duration

	sticky domain.StickyRegistry
	now    domain.Clock
	log    *slog.Logger
}

type slot struct {
	reserved    []byte
	lastTouched time.Time
}

type TableOption func(*SessionTable)

func WithPerSessionBytes(n int) TableOption {
	return func(t *SessionTable) { t.perSessionBytes = n }
}

func WithSessionTTL(d time.Duration) TableOption {
	return func(t *SessionTable) { t.ttl = d }
}

func WithSweepEvery(d time.Duration) TableOption {
	return func(t *SessionTable) { t.sweepEvery = d }
}

// WithSticky liga o registro consultado pela varredura.
func WithSticky(r domain.StickyRegistry) TableOption {
	return func(t *SessionTable) { t.sticky = r }
}

func WithClock(c domain.Clock) TableOption {
	return func(t *SessionTable) { t.now = c }
}

func WithLogger(l *slog.Logger) TableOption {
	return func(t *SessionTable) { t.log = l }
}

func NewSessionTable(maxSessions int, opts ...TableOption) *SessionTable {
	t := &SessionTable{
		slots:           make(map[domain.Key]*slot),
		freed:           make(chan struct{}),
		maxSessions:     maxSessions,
		perSessionBytes: 10 << 20,
		ttl:             5 * time.Second,
		sweepEvery:      time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	return t
}

func (t *SessionTable) MaxSessions() int { return t.maxSessions }
func (t *SessionTable) PerSessionBytes() int { return t.perSessionBytes }
func (t *SessionTable) SessionTTL() time.Duration { return t.ttl }
func (t *SessionTable) SweepEvery() time.Duration { return t.sweepEvery }

// Ensure implementa domain.Gate.
//
// O prazo é de relógio de parede a partir da chamada: acordar e reavaliar várias
// vezes consome o mesmo orçamento. Com timeout <= 0 e tabela cheia retorna na hora.
func (t *SessionTable) Ensure(ctx context.Context, key domain.Key, timeout time.Duration) error {
	var (
		timer   *time.Timer
		expired = timeout <= 0
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	t.mu.Lock()
	for {
		if s, ok := t.slots[key]; ok {
			s.lastTouched = t.now()
			t.mu.Unlock()
			return nil
		}
		if len(t.slots) < t.maxSessions {
			t.slots[key] = t.newSlotLocked()
			t.mu.Unlock()
			return nil
		}
		if expired {
			t.mu.Unlock()
			return domain.ErrAdmissionTimeout
		}

		// espera sem segurar o lock; quem acordar reavalia a capacidade.
		wake := t.freed
		t.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-wake:
		case <-timer.C:
			expired = true
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", domain.ErrAdmissionTimeout, ctx.Err())
		}
		t.mu.Lock()
	}
}

// newSlotLocked paga o custo da reserva: aloca e toca cada página.
func (t *SessionTable) newSlotLocked() *slot {
	s := &slot{lastTouched: t.now()}
	if t.perSessionBytes > 0 {
		s.reserved = make([]byte, t.perSessionBytes)
		for i := 0; i < len(s.reserved); i += pageSize {
			s.reserved[i] = 'x'
		}
	}
	return s
}

// Stats implementa domain.Gate.
func (t *SessionTable) Stats() domain.TableStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := domain.TableStats{Count: len(t.slots)}
	for _, s := range t.slots {
		st.ReservedBytes += int64(len(s.reserved))
	}
	return st
}

// Sweep faz uma passada de recolhimento e retorna quantos slots foram removidos.
//
// A supressão sticky é reavaliada a cada passada: o timestamp pode ter sido
// marcado depois da criação do slot ou durar mais que o próprio TTL. No fim da
// passada as entradas sticky vencidas são descartadas.
func (t *SessionTable) Sweep() int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for k, s := range t.slots {
		if t.sticky != nil && t.sticky.Suppressed(k, now) {
			continue
		}
		if now.Sub(s.lastTouched) > t.ttl {
			delete(t.slots, k)
			evicted++
		}
	}
	if t.sticky != nil {
		// chaves que tomaram timeout e nunca ganharam slot só saem por aqui
		t.sticky.Prune(now)
	}
	if evicted > 0 {
		close(t.freed)
		t.freed = make(chan struct{})
		t.log.Debug("sessions evicted", "evicted", evicted, "remaining", len(t.slots))
	}
	return evicted
}

// RunSweeper executa Sweep a cada SweepEvery até o ctx encerrar.
// Retorna nil no encerramento normal, para uso com errgroup.
func (t *SessionTable) RunSweeper(ctx context.Context) error {
	if t.sweepEvery <= 0 {
		<-ctx.Done()
		return nil
	}

	tk := time.NewTicker(t.sweepEvery)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			t.Sweep()
		}
	}
}

// StartSweeper inicia RunSweeper numa goroutine. Pare cancelando o contexto.
func (t *SessionTable) StartSweeper(ctx context.Context) {
	go func() { _ = t.RunSweeper(ctx) }()
}

var _ domain.Gate = (*SessionTable)(nil)
