package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"fault-testbed/middleware/session/domain"

	"golang.org/x/time/rate"
)

// FileAppender é o I/O síncrono feito por toda requisição admitida.
//
// As escritas são serializadas por um mutex. Opcionalmente um token bucket
// (x/time/rate) limita a vazão para simular um disco lento: com a fila cheia,
// a requisição espera o token e pode estourar o prazo do ctx.
type FileAppender struct {
	mu     sync.Mutex
	w      io.Writer
	syncFn func() error

	lim *rate.Limiter
}

type AppenderOption func(*FileAppender)

// WithAppendRate limita a rps escritas por segundo (rps <= 0 desliga).
func WithAppendRate(rps float64) AppenderOption {
	return func(a *FileAppender) {
		if rps > 0 {
			a.lim = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithSync força fsync após cada linha.
func WithSync(fn func() error) AppenderOption {
	return func(a *FileAppender) { a.syncFn = fn }
}

func NewAppender(w io.Writer, opts ...AppenderOption) *FileAppender {
	a := &FileAppender{w: w}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OpenFileAppender abre (ou cria) o arquivo em modo append. Com fsync, cada linha
// só é confirmada depois de File.Sync. O chamador fecha o arquivo retornado.
func OpenFileAppender(path string, fsync bool, opts ...AppenderOption) (*FileAppender, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	if fsync {
		opts = append(opts, WithSync(f.Sync))
	}
	return NewAppender(f, opts...), f, nil
}

func (a *FileAppender) Append(ctx context.Context, line string) error {
	if a.lim != nil {
		if err := a.lim.Wait(ctx); err != nil {
			// Wait falha antes do prazo quando o token não chegaria a tempo.
			if errors.Is(err, context.Canceled) {
				return fmt.Errorf("%w: log append: %w", domain.ErrDownstreamError, err)
			}
			return fmt.Errorf("%w: log append: %w", domain.ErrDownstreamTimeout, err)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := io.WriteString(a.w, line); err != nil {
		return fmt.Errorf("%w: log append: %w", domain.ErrDownstreamError, err)
	}
	if a.syncFn != nil {
		if err := a.syncFn(); err != nil {
			return fmt.Errorf("%w: log sync: %w", domain.ErrDownstreamError, err)
		}
	}
	return nil
}

var _ domain.LogAppender = (*FileAppender)(nil)
