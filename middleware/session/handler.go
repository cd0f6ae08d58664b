package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"fault-testbed/middleware/session/application"
	"fault-testbed/middleware/session/domain"

	"github.com/google/uuid"
)

const (
	DefaultKeyHeader       = "X-Proxy-Session"
	RequestIDHeader        = "X-Request-ID"
	sessionKeyHeader       = "X-Session-Key"
	sessionCountHeader     = "X-Session-Count"
	sessionMaxHeader       = "X-Session-Max"
	sessionQueueWaitHeader = "X-Session-Queue-Wait"
)

type KeyFunc func(r *http.Request) domain.Key

// WorkFunc é executado depois da admissão. O valor retornado vira o corpo JSON do 200.
type WorkFunc func(ctx context.Context, r *http.Request, key domain.Key) (any, error)

type Options struct {
	Gate     domain.Gate
	Sticky   domain.StickyMarker
	Metrics  domain.Metrics
	Outcomes domain.OutcomeStore

	// Budget é o orçamento de espera por admissão.
	Budget time.Duration
	Work   WorkFunc

	KeyFn     KeyFunc
	KeyHeader string

	RetryAfter        time.Duration
	AddSessionHeaders bool
	MaxSessions       int

	Logger *slog.Logger
}

// DefaultKeyFunc usa o header informado; sem header, gera um uuid novo por requisição
// (o que impede reaproveitar a sessão).
func DefaultKeyFunc(keyHeader string) KeyFunc {
	return func(r *http.Request) domain.Key {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return domain.Key(v)
			}
		}
		return domain.Key(uuid.NewString())
	}
}

// StatusFor traduz o resultado para o status HTTP.
func StatusFor(o domain.Outcome) int {
	switch o {
	case domain.OutcomeAdmitted:
		return http.StatusOK
	case domain.OutcomeAdmissionTimeout:
		return http.StatusServiceUnavailable
	case domain.OutcomeDownstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func Handler(opts Options) http.Handler {
	if opts.KeyHeader == "" {
		opts.KeyHeader = DefaultKeyHeader
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader)
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	svc := application.RequestService{
		Gate:    opts.Gate,
		Sticky:  opts.Sticky,
		Metrics: opts.Metrics,
		Budget:  opts.Budget,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)

		key := opts.KeyFn(r)
		log := opts.Logger.With("request_id", reqID, "session_key", string(key))

		var payload any
		res := svc.Handle(r.Context(), key, func(ctx context.Context) error {
			if opts.Work == nil {
				return nil
			}
			var err error
			payload, err = opts.Work(ctx, r, key)
			return err
		})

		if opts.Outcomes != nil {
			// best-effort: falha do store não derruba a requisição
			ev := domain.OutcomeEvent{
				Key:     key,
				Outcome: res.Outcome,
				Method:  r.Method,
				Path:    r.URL.Path,
				Wait:    res.Wait,
				At:      time.Now(),
			}
			if err := opts.Outcomes.Record(context.WithoutCancel(r.Context()), ev); err != nil {
				log.Debug("outcome store error", "err", err)
			}
		}

		if opts.AddSessionHeaders {
			w.Header().Set(sessionKeyHeader, string(key))
			w.Header().Set(sessionQueueWaitHeader, formatSeconds(res.Wait.Seconds()))
			if opts.Gate != nil {
				w.Header().Set(sessionCountHeader, formatInt(opts.Gate.Stats().Count))
			}
			if opts.MaxSessions > 0 {
				w.Header().Set(sessionMaxHeader, formatInt(opts.MaxSessions))
			}
		}

		status := StatusFor(res.Outcome)
		switch res.Outcome {
		case domain.OutcomeAdmitted:
			writeJSON(w, status, payload)
			return
		case domain.OutcomeAdmissionTimeout:
			if res.Abandoned() {
				log.Info("admission abandoned by client", "wait", res.Wait)
			} else {
				log.Warn("admission timed out", "wait", res.Wait)
			}
			w.Header().Set("Retry-After", formatInt(retryAfterSeconds(opts.RetryAfter)))
		default:
			log.Error("downstream failed", "outcome", string(res.Outcome), "err", res.Err)
		}
		http.Error(w, http.StatusText(status), status)
	})
}

// retryAfterSeconds arredonda para cima; o header aceita só segundos inteiros.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		v = map[string]string{"status": "ok"}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
