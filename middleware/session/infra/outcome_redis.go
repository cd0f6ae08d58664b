package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fault-testbed/middleware/session/domain"

	"github.com/redis/go-redis/v9"
)

// RedisOutcomeStore acumula os resultados das requisições em hashes do Redis,
// um campo por Outcome. Todas as escritas de um evento vão num único pipeline.
//
// Chaves (prefixo padrão testbed:outcomes):
//
//	:total                  contagem acumulada, sem expiração
//	:wait_ms                tempo de fila somado em ms
//	:minute:<yyyymmddhhmm>  contagem por minuto UTC
//	:route                  "<method> <path>:<outcome>"
//	:key:<session key>      só com WithOutcomeTrackKeys
type RedisOutcomeStore struct {
	rdb    *redis.Client
	prefix string

	// expiração dos buckets por minuto e dos hashes por sessão
	ttl       time.Duration
	bucket    string
	trackKeys bool
}

type RedisOutcomeOption func(*RedisOutcomeStore)

func WithOutcomePrefix(prefix string) RedisOutcomeOption {
	return func(s *RedisOutcomeStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithOutcomeTTL(d time.Duration) RedisOutcomeOption {
	return func(s *RedisOutcomeStore) { s.ttl = d }
}

// WithOutcomeBucket escolhe a série temporal: "minute" grava o bucket por minuto,
// qualquer outro valor desliga.
func WithOutcomeBucket(bucket string) RedisOutcomeOption {
	return func(s *RedisOutcomeStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// WithOutcomeTrackKeys liga o hash por chave de sessão. Chaves geradas por
// requisição (uuid) criam um hash novo cada; o TTL limita o acúmulo.
func WithOutcomeTrackKeys(track bool) RedisOutcomeOption {
	return func(s *RedisOutcomeStore) { s.trackKeys = track }
}

func NewRedisOutcomeStore(rdb *redis.Client, opts ...RedisOutcomeOption) *RedisOutcomeStore {
	s := &RedisOutcomeStore{
		rdb:    rdb,
		prefix: "testbed:outcomes",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisOutcomeStore) Record(ctx context.Context, ev domain.OutcomeEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)
	if ev.Wait > 0 {
		pipe.HIncrBy(ctx, s.prefix+":wait_ms", field, ev.Wait.Milliseconds())
	}

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	routeField := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
	if routeField != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", routeField+":"+field, 1)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

var _ domain.OutcomeStore = (*RedisOutcomeStore)(nil)
