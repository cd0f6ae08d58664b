// utilitário pequeno para formatação de valores numéricos em headers.

package session

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }

func formatSeconds(v float64) string {
	// sem notação científica para valores comuns
	return strconv.FormatFloat(v, 'f', -1, 64)
}
