// Package application contém os casos de uso da admissão de sessões.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: RequestService.Handle(ctx, key, work) admite a sessão, executa o trabalho
// e contabiliza o resultado (métricas + sticky).
package application
