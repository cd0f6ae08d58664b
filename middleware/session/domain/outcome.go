package domain

import (
	"context"
	"errors"
	"time"
)

// Outcome é o resultado de uma requisição do ponto de vista da admissão.
type Outcome string

const (
	OutcomeAdmitted          Outcome = "admitted"
	OutcomeAdmissionTimeout  Outcome = "admission-timeout"
	OutcomeDownstreamTimeout Outcome = "downstream-timeout"
	OutcomeDownstreamError   Outcome = "downstream-error"
)

// Classify traduz o erro de uma requisição admitida em Outcome.
// Erros que não são de timeout contam como downstream-error.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAdmitted
	case errors.Is(err, ErrAdmissionTimeout):
		return OutcomeAdmissionTimeout
	case errors.Is(err, ErrDownstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeDownstreamTimeout
	default:
		return OutcomeDownstreamError
	}
}

// OutcomeEvent representa uma requisição concluída.
//
// Method/Path são strings genéricas. Cuidado com cardinalidade ao persistir Key.
type OutcomeEvent struct {
	Key     Key
	Outcome Outcome

	Method string
	Path   string

	// Wait é quanto tempo a requisição ficou na fila de admissão.
	Wait time.Duration
	At   time.Time
}

// OutcomeStore é a estratégia de persistência dos eventos de resultado.
//
// Implementações podem armazenar em Redis, memória, etc.
// O handler trata erro como best-effort (não derruba request).
type OutcomeStore interface {
	Record(ctx context.Context, ev OutcomeEvent) error
}

// LogAppender é o efeito colateral de I/O síncrono feito após a admissão.
type LogAppender interface {
	Append(ctx context.Context, line string) error
}
