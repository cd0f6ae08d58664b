package domain

import (
	"context"
	"time"
)

// Key identifica uma sessão lógica (ex: header X-Proxy-Session).
// Não é única no tempo: a mesma chave pode voltar depois de recolhida.
type Key string

// Clock é a fonte de tempo usada para idade de slots e janela sticky.
type Clock func() time.Time

// TableStats é uma foto do estado da tabela de slots.
type TableStats struct {
	Count         int
	ReservedBytes int64
}

// Gate representa a tabela de slots com capacidade finita.
//
// Ensure reserva (ou renova) o slot de uma chave. Se a tabela estiver cheia,
// bloqueia até um slot ser liberado pela varredura, até `timeout` ou até o ctx encerrar.
// Não existe release: slots só saem por inatividade.
type Gate interface {
	Ensure(ctx context.Context, key Key, timeout time.Duration) error
	Stats() TableStats
}

// StickyMarker registra chaves que falharam admissão por timeout.
type StickyMarker interface {
	Mark(key Key)
}

// StickyRegistry é consultado pela varredura antes de despejar um slot.
// Prune descarta as entradas vencidas e é chamado uma vez por varredura.
type StickyRegistry interface {
	StickyMarker
	Suppressed(key Key, now time.Time) bool
	Prune(now time.Time) int
}
