package domain

import "errors"

var (
	// ErrAdmissionTimeout indica que nenhuma vaga foi liberada dentro do orçamento de espera.
	// Cancelamento do ctx durante a espera também satisfaz errors.Is com este erro.
	ErrAdmissionTimeout = errors.New("admission timed out waiting for capacity")

	// ErrDownstreamTimeout indica que o trabalho feito após a admissão não terminou a tempo.
	ErrDownstreamTimeout = errors.New("downstream timed out")

	// ErrDownstreamError é qualquer outra falha do trabalho feito após a admissão.
	ErrDownstreamError = errors.New("downstream error")

	// ErrInvalidConfig indica um parâmetro inválido na inicialização.
	ErrInvalidConfig = errors.New("invalid configuration")
)
