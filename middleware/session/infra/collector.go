package infra

import (
	"fault-testbed/middleware/session/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "testbed"

// Collector expõe o agregador e a tabela de slots no formato Prometheus.
// Os valores são lidos no momento do scrape.
type Collector struct {
	metrics domain.Metrics
	gate    domain.Gate

	pending, done, timeouts, errors *prometheus.Desc
	sessions, reserved, maxSessions *prometheus.Desc
	recentArrivals, recentTimeouts  *prometheus.Desc
	recentRatio                     *prometheus.Desc

	max int
}

func NewCollector(m domain.Metrics, g domain.Gate, maxSessions int) *Collector {
	d := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &Collector{
		metrics:        m,
		gate:           g,
		max:            maxSessions,
		pending:        d("requests_pending", "Requests currently in flight (queued or working)."),
		done:           d("requests_done_total", "Requests completed successfully."),
		timeouts:       d("requests_timeouts_total", "Requests that timed out in admission or downstream."),
		errors:         d("requests_errors_total", "Requests that failed downstream."),
		sessions:       d("session_count", "Number of live session slots."),
		reserved:       d("reserved_bytes", "Bytes reserved by live session slots."),
		maxSessions:    d("max_sessions", "Configured session capacity."),
		recentArrivals: d("recent_arrivals", "Arrivals within the metrics window."),
		recentTimeouts: d("recent_timeouts", "Timeouts within the metrics window."),
		recentRatio:    d("recent_timeout_ratio", "Timeouts over arrivals within the metrics window."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.pending, c.done, c.timeouts, c.errors,
		c.sessions, c.reserved, c.maxSessions,
		c.recentArrivals, c.recentTimeouts, c.recentRatio,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()
	sum := c.metrics.RecentSummary()
	st := c.gate.Stats()

	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(snap.Pending))
	ch <- prometheus.MustNewConstMetric(c.done, prometheus.CounterValue, float64(snap.Done))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(snap.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(snap.Errors))
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(st.Count))
	ch <- prometheus.MustNewConstMetric(c.reserved, prometheus.GaugeValue, float64(st.ReservedBytes))
	ch <- prometheus.MustNewConstMetric(c.maxSessions, prometheus.GaugeValue, float64(c.max))
	ch <- prometheus.MustNewConstMetric(c.recentArrivals, prometheus.GaugeValue, float64(sum.RecentArrivals))
	ch <- prometheus.MustNewConstMetric(c.recentTimeouts, prometheus.GaugeValue, float64(sum.RecentTimeouts))
	ch <- prometheus.MustNewConstMetric(c.recentRatio, prometheus.GaugeValue, sum.RecentTimeoutRatio)
}

var _ prometheus.Collector = (*Collector)(nil)
