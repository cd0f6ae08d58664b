package infra

import (
	"context"
	"strings"
	"testing"
	"time"

	"fault-testbed/middleware/session/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_ExposesAggregatorAndTable(t *testing.T) {
	agg := NewAggregator(time.Minute)
	tb := NewSessionTable(3, WithPerSessionBytes(4096))
	require.NoError(t, tb.Ensure(context.Background(), "a", 0))

	agg.BeginRequest()
	agg.EndRequest(domain.OutcomeAdmitted)
	agg.BeginRequest()
	agg.EndRequest(domain.OutcomeAdmissionTimeout)

	c := NewCollector(agg, tb, 3)

	want := `
# HELP testbed_requests_done_total Requests completed successfully.
# TYPE testbed_requests_done_total counter
testbed_requests_done_total 1
# HELP testbed_requests_timeouts_total Requests that timed out in admission or downstream.
# TYPE testbed_requests_timeouts_total counter
testbed_requests_timeouts_total 1
# HELP testbed_session_count Number of live session slots.
# TYPE testbed_session_count gauge
testbed_session_count 1
# HELP testbed_reserved_bytes Bytes reserved by live session slots.
# TYPE testbed_reserved_bytes gauge
testbed_reserved_bytes 4096
# HELP testbed_max_sessions Configured session capacity.
# TYPE testbed_max_sessions gauge
testbed_max_sessions 3
# HELP testbed_recent_timeout_ratio Timeouts over arrivals within the metrics window.
# TYPE testbed_recent_timeout_ratio gauge
testbed_recent_timeout_ratio 0.5
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(want),
		"testbed_requests_done_total",
		"testbed_requests_timeouts_total",
		"testbed_session_count",
		"testbed_reserved_bytes",
		"testbed_max_sessions",
		"testbed_recent_timeout_ratio",
	))
	require.Equal(t, 10, testutil.CollectAndCount(c))
}
