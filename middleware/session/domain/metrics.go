package domain

// Counter nomeia um dos contadores do agregador.
type Counter string

const (
	CounterPending  Counter = "pending"
	CounterDone     Counter = "done"
	CounterTimeouts Counter = "timeouts"
	CounterErrors   Counter = "errors"
)

// Counters é uma cópia consistente dos quatro contadores.
type Counters struct {
	Pending  int64
	Done     int64
	Timeouts int64
	Errors   int64
}

// RecentSummary resume a janela deslizante de chegadas/timeouts.
// RecentTimeoutRatio é 0 quando não houve chegadas na janela.
type RecentSummary struct {
	RecentArrivals     int
	RecentTimeouts     int
	RecentTimeoutRatio float64
}

// Metrics é o que o handler precisa do agregador.
//
// BeginRequest e EndRequest atualizam contadores e janelas numa única seção crítica.
type Metrics interface {
	BeginRequest()
	EndRequest(o Outcome)
	Snapshot() Counters
	RecentSummary() RecentSummary
}
