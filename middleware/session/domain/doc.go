// Package domain define contratos e tipos de domínio para a admissão de sessões.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar as regras de admissão,
// varredura e métricas dos detalhes de infraestrutura.
package domain
