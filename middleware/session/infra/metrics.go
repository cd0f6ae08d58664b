package infra

import (
	"sync"
	"time"

	"fault-testbed/middleware/session/domain"
)

// Aggregator mantém os contadores do serviço e duas janelas deslizantes
// (chegadas e timeouts). Toda mutação acontece sob um único mutex.
type Aggregator struct {
	mu       sync.Mutex
	counters domain.Counters
	arrivals []time.Time
	timeouts []time.Time

	window time.Duration
	now    domain.Clock
}

type AggregatorOption func(*Aggregator)

func WithAggregatorClock(c domain.Clock) AggregatorOption {
	return func(a *Aggregator) { a.now = c }
}

func NewAggregator(window time.Duration, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Window() time.Duration { return a.window }

func (a *Aggregator) Increment(c domain.Counter, delta int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.incrementLocked(c, delta)
}

func (a *Aggregator) incrementLocked(c domain.Counter, delta int64) {
	switch c {
	case domain.CounterPending:
		a.counters.Pending += delta
	case domain.CounterDone:
		a.counters.Done += delta
	case domain.CounterTimeouts:
		a.counters.Timeouts += delta
	case domain.CounterErrors:
		a.counters.Errors += delta
	}
}

func (a *Aggregator) Snapshot() domain.Counters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters
}

func (a *Aggregator) RecordArrival() {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.arrivals = append(a.arrivals, now)
	a.pruneLocked(now)
}

func (a *Aggregator) RecordTimeout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.timeouts = append(a.timeouts, now)
	a.pruneLocked(now)
}

// BeginRequest incrementa pending e registra a chegada na mesma seção crítica.
func (a *Aggregator) BeginRequest() {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.counters.Pending++
	a.arrivals = append(a.arrivals, now)
	a.pruneLocked(now)
}

// EndRequest fecha uma requisição aberta por BeginRequest.
//
// Timeouts (de admissão ou downstream) também entram na janela de timeouts.
func (a *Aggregator) EndRequest(o domain.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.counters.Pending--
	switch o {
	case domain.OutcomeAdmitted:
		a.counters.Done++
	case domain.OutcomeAdmissionTimeout, domain.OutcomeDownstreamTimeout:
		a.counters.Timeouts++
		a.timeouts = append(a.timeouts, now)
	default:
		a.counters.Errors++
	}
	a.pruneLocked(now)
}

func (a *Aggregator) RecentSummary() domain.RecentSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.pruneLocked(now)

	sum := domain.RecentSummary{
		RecentArrivals: len(a.arrivals),
		RecentTimeouts: len(a.timeouts),
	}
	if sum.RecentArrivals > 0 {
		sum.RecentTimeoutRatio = float64(sum.RecentTimeouts) / float64(sum.RecentArrivals)
		if sum.RecentTimeoutRatio > 1 {
			sum.RecentTimeoutRatio = 1
		}
	}
	return sum
}

func (a *Aggregator) pruneLocked(now time.Time) {
	cutoff := now.Add(-a.window)
	a.arrivals = pruneBefore(a.arrivals, cutoff)
	a.timeouts = pruneBefore(a.timeouts, cutoff)
}

// pruneBefore descarta eventos anteriores a cutoff. ts está em ordem de chegada
// porque o timestamp é lido com o lock.
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

var _ domain.Metrics = (*Aggregator)(nil)
