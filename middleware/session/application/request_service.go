package application

import (
	"context"
	"errors"
	"time"

	"fault-testbed/middleware/session/domain"
)

// WorkFunc é o trabalho feito depois da admissão (append de log, chamada downstream).
type WorkFunc func(ctx context.Context) error

// Result descreve o que aconteceu com uma requisição.
type Result struct {
	Outcome domain.Outcome
	// Wait é o tempo gasto esperando admissão.
	Wait time.Duration
	Err  error
}

// RequestService concentra a regra de admissão + trabalho + contabilização,
// sem saber nada sobre HTTP.
type RequestService struct {
	Gate    domain.Gate
	Sticky  domain.StickyMarker
	Metrics domain.Metrics
	// Budget é o orçamento de espera por admissão. Se <= 0, falha na hora com a tabela cheia.
	Budget time.Duration
	Now    domain.Clock
}

// Handle admite `key` e, se admitido, executa work.
//
// Timeout de admissão: conta timeout e marca a chave como sticky.
// Cancelamento durante a espera conta como timeout, mas não marca sticky.
// Prazo do ctx menor que o orçamento marca sticky normalmente.
// Falhas do work não mexem na tabela: o slot continua até expirar.
func (s RequestService) Handle(ctx context.Context, key domain.Key, work WorkFunc) Result {
	now := s.Now
	if now == nil {
		now = time.Now
	}

	if s.Metrics != nil {
		s.Metrics.BeginRequest()
	}

	start := now()
	var err error
	if s.Gate != nil {
		err = s.Gate.Ensure(ctx, key, s.Budget)
	}
	res := Result{Wait: now().Sub(start)}

	if err != nil {
		res.Outcome = domain.OutcomeAdmissionTimeout
		res.Err = err
		if s.Metrics != nil {
			s.Metrics.EndRequest(res.Outcome)
		}
		if s.Sticky != nil && !abandoned(err) {
			s.Sticky.Mark(key)
		}
		return res
	}

	if work != nil {
		err = work(ctx)
	}
	res.Outcome = domain.Classify(err)
	if res.Outcome == domain.OutcomeAdmissionTimeout {
		// o work não pode produzir timeout de admissão
		res.Outcome = domain.OutcomeDownstreamError
	}
	res.Err = err
	if s.Metrics != nil {
		s.Metrics.EndRequest(res.Outcome)
	}
	return res
}

// Abandoned diz se o cliente desistiu (ctx cancelado) durante a espera.
// Prazo do ctx vencido conta como timeout de verdade.
func (r Result) Abandoned() bool {
	return r.Outcome == domain.OutcomeAdmissionTimeout && abandoned(r.Err)
}

func abandoned(err error) bool {
	return errors.Is(err, context.Canceled)
}
