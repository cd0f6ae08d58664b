package session

import (
	"net/http"

	"fault-testbed/middleware/session/domain"
)

// ConfigView são os parâmetros ativos publicados junto com as métricas.
type ConfigView struct {
	PerSessionBytes  int     `json:"per_session_bytes"`
	MaxSessions      int     `json:"max_sessions"`
	SessionTTL       float64 `json:"session_ttl"`
	AppQueueTimeoutS float64 `json:"app_queue_timeout_s"`
	StickyOnTimeoutS float64 `json:"sticky_on_timeout_s"`
}

// MetricsReport é o corpo de GET /metrics.
type MetricsReport struct {
	Pending  int64 `json:"pending"`
	Done     int64 `json:"done"`
	Timeouts int64 `json:"timeouts"`
	Errors   int64 `json:"errors"`

	SessionCount int     `json:"session_count"`
	ReservedMB   float64 `json:"reserved_mb"`

	RecentArrivals     int     `json:"recent_arrivals"`
	RecentTimeouts     int     `json:"recent_timeouts"`
	RecentTimeoutRatio float64 `json:"recent_timeout_ratio"`

	ConfigView
}

// Report monta o relatório a partir do agregador e da tabela.
func Report(m domain.Metrics, g domain.Gate, cfg ConfigView) MetricsReport {
	snap := m.Snapshot()
	sum := m.RecentSummary()
	st := g.Stats()

	return MetricsReport{
		Pending:            snap.Pending,
		Done:               snap.Done,
		Timeouts:           snap.Timeouts,
		Errors:             snap.Errors,
		SessionCount:       st.Count,
		ReservedMB:         float64(st.ReservedBytes) / (1 << 20),
		RecentArrivals:     sum.RecentArrivals,
		RecentTimeouts:     sum.RecentTimeouts,
		RecentTimeoutRatio: sum.RecentTimeoutRatio,
		ConfigView:         cfg,
	}
}

func MetricsHandler(m domain.Metrics, g domain.Gate, cfg ConfigView) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Report(m, g, cfg))
	})
}
