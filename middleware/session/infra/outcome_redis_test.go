package infra

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"fault-testbed/middleware/session/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOutcomeStore_Options(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = rdb.Close() }()

	s := NewRedisOutcomeStore(rdb,
		WithOutcomePrefix(":bench:outcomes:"),
		WithOutcomeTTL(time.Hour),
		WithOutcomeBucket(" NONE "),
		WithOutcomeTrackKeys(true),
	)

	assert.Equal(t, "bench:outcomes", s.prefix)
	assert.Equal(t, time.Hour, s.ttl)
	assert.Equal(t, "none", s.bucket)
	assert.True(t, s.trackKeys)
}

func TestRedisOutcomeStore_NilIsNoop(t *testing.T) {
	var s *RedisOutcomeStore
	assert.NoError(t, s.Record(context.Background(), domain.OutcomeEvent{Outcome: domain.OutcomeAdmitted}))
}

func TestRedisOutcomeStore_CancelledContextReturnsError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	defer func() { _ = rdb.Close() }()
	s := NewRedisOutcomeStore(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Record(ctx, domain.OutcomeEvent{Key: "k", Outcome: domain.OutcomeAdmitted, Method: "POST", Path: "/x"})
	require.Error(t, err)
}

// pipelineRecorder guarda os comandos do pipeline sem falar com o Redis.
type pipelineRecorder struct {
	cmds []string
}

func (p *pipelineRecorder) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("dial disabled in tests")
	}
}

func (p *pipelineRecorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		p.cmds = append(p.cmds, joinArgs(cmd.Args()))
		return nil
	}
}

func (p *pipelineRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, c := range cmds {
			p.cmds = append(p.cmds, joinArgs(c.Args()))
		}
		return nil
	}
}

func joinArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, " ")
}

func newRecordedStore(t *testing.T, opts ...RedisOutcomeOption) (*RedisOutcomeStore, *pipelineRecorder) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })
	rec := &pipelineRecorder{}
	rdb.AddHook(rec)
	return NewRedisOutcomeStore(rdb, opts...), rec
}

func TestRedisOutcomeStore_RecordWritesAllHashes(t *testing.T) {
	s, rec := newRecordedStore(t, WithOutcomeTTL(time.Hour), WithOutcomeTrackKeys(true))

	err := s.Record(context.Background(), domain.OutcomeEvent{
		Key:     "s1",
		Outcome: domain.OutcomeAdmissionTimeout,
		Method:  "POST",
		Path:    "/api/v1/vehicle/climate/start",
		Wait:    1500 * time.Millisecond,
		At:      time.Date(2024, 1, 1, 10, 30, 15, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"hincrby testbed:outcomes:total admission-timeout 1",
		"hincrby testbed:outcomes:wait_ms admission-timeout 1500",
		"hincrby testbed:outcomes:minute:202401011030 admission-timeout 1",
		"expire testbed:outcomes:minute:202401011030 3600",
		"hincrby testbed:outcomes:route POST /api/v1/vehicle/climate/start:admission-timeout 1",
		"hincrby testbed:outcomes:key:s1 admission-timeout 1",
		"expire testbed:outcomes:key:s1 3600",
	}, rec.cmds)
}

func TestRedisOutcomeStore_RecordWithoutBucketOrWait(t *testing.T) {
	s, rec := newRecordedStore(t, WithOutcomePrefix("bench"), WithOutcomeBucket("none"))

	err := s.Record(context.Background(), domain.OutcomeEvent{Key: "s1", Outcome: domain.OutcomeAdmitted})
	require.NoError(t, err)

	assert.Equal(t, []string{"hincrby bench:total admitted 1"}, rec.cmds)
}
