package infra

import (
	"context"
	"testing"

	"fault-testbed/middleware/session/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOutcomeStore_CountsByOutcomeAndRoute(t *testing.T) {
	s := NewMemoryOutcomeStore()
	ctx := context.Background()

	ev := domain.OutcomeEvent{Key: "k1", Method: "POST", Path: "/api/v1/vehicle/climate/start"}
	ev.Outcome = domain.OutcomeAdmitted
	require.NoError(t, s.Record(ctx, ev))
	require.NoError(t, s.Record(ctx, ev))
	ev.Outcome = domain.OutcomeAdmissionTimeout
	require.NoError(t, s.Record(ctx, ev))

	assert.Equal(t, OutcomeCounts{
		domain.OutcomeAdmitted:         2,
		domain.OutcomeAdmissionTimeout: 1,
	}, s.Total())
	assert.Equal(t, int64(2), s.ByRoute()["POST /api/v1/vehicle/climate/start"][domain.OutcomeAdmitted])
	assert.Empty(t, s.ByKey(), "keys are not tracked by default")
}

func TestMemoryOutcomeStore_TrackKeys(t *testing.T) {
	s := NewMemoryOutcomeStore(WithTrackKeys(true))

	require.NoError(t, s.Record(context.Background(), domain.OutcomeEvent{Key: "k1", Outcome: domain.OutcomeDownstreamError}))

	assert.Equal(t, int64(1), s.ByKey()["k1"][domain.OutcomeDownstreamError])
}

func TestMemoryOutcomeStore_SnapshotsAreCopies(t *testing.T) {
	s := NewMemoryOutcomeStore()
	require.NoError(t, s.Record(context.Background(), domain.OutcomeEvent{Outcome: domain.OutcomeAdmitted}))

	total := s.Total()
	total[domain.OutcomeAdmitted] = 100

	assert.Equal(t, int64(1), s.Total()[domain.OutcomeAdmitted])
}
