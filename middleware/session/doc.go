// Package session fornece adapters HTTP (net/http) para a admissão de sessões do testbed.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (admissão com orçamento, trabalho, contabilização) sem net/http
//   - infra: implementações concretas (tabela de slots, sticky, métricas, stores, cliente downstream)
//   - session (este pacote): handler HTTP + extração de chave + tradução de resultado para status/headers
//
// Fluxo no testbed:
//
//  1. Extrai a chave de sessão (header X-Proxy-Session ou uuid novo)
//  2. Pede admissão à tabela de slots (pode ficar na fila até o orçamento)
//  3. Se não admitido, responde 503 e marca a chave como sticky
//  4. Se admitido, executa o trabalho (append de log + downstream): 200, 504 ou 502
//
// A configuração do binário (cmd/testbed) controla capacidade, TTL, janela sticky etc.
// via flags, arquivo YAML ou variáveis de ambiente como MAX_SESSIONS e SESSION_TTL_S.
package session
