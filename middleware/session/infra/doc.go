// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - SessionTable: tabela de slots com capacidade fixa, espera com timeout e varredura periódica
//   - StickyRegistry: chaves que tomaram timeout e não podem ser despejadas por um tempo
//   - Aggregator: contadores e janelas deslizantes de chegadas/timeouts
//   - MemoryOutcomeStore / RedisOutcomeStore: eventos de resultado por requisição
//   - FileAppender: append serializado em arquivo, com limite de vazão via golang.org/x/time/rate
//   - VehicleClient: chamada HTTP ao simulador de veículo
//   - Collector: métricas Prometheus lidas no scrape
package infra
