package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"proxy-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

const (
	BucketMinute = "minute"
	BucketHour   = "hour"
	BucketNone   = "none"
)

// RedisStatsStore grava as decisões do rate limit em hashes do Redis:
//
//	<prefix>:total              allowed/denied cumulativos (sem TTL)
//	<prefix>:<bucket>:<stamp>   série temporal por minuto ou hora
//	<prefix>:route              "<METHOD> <path>:allowed|denied"
//	<prefix>:key:<key>          por cliente, só com trackKeys
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	ttl time.Duration

	bucket string

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "gateway:ratelimit",
		ttl:    24 * time.Hour,
		bucket: BucketMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BucketKey devolve a chave da série temporal para o instante, ou "" sem bucket.
func (s *RedisStatsStore) BucketKey(at time.Time) string {
	switch s.bucket {
	case BucketMinute:
		return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	case BucketHour:
		return fmt.Sprintf("%s:hour:%s", s.prefix, at.UTC().Format("2006010215"))
	default:
		return ""
	}
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if bucketKey := s.BucketKey(at); bucketKey != "" {
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if route := routeField(ev.Method, ev.Path); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
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

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats: %w", err)
	}
	return nil
}

// Snapshot lê os totais e o hash por rota. Contadores por chave e séries
// temporais ficam no Redis para consulta direta.
func (s *RedisStatsStore) Snapshot(ctx context.Context) (StatsSnapshot, error) {
	if s.rdb == nil {
		return StatsSnapshot{ByRoute: map[string]Counters{}}, nil
	}

	pipe := s.rdb.Pipeline()
	total := pipe.HGetAll(ctx, s.prefix+":total")
	routes := pipe.HGetAll(ctx, s.prefix+":route")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return StatsSnapshot{}, fmt.Errorf("redis stats: %w", err)
	}

	return StatsSnapshot{
		Total:   countersFromHash(total.Val()),
		ByRoute: routesFromHash(routes.Val()),
	}, nil
}

func countersFromHash(h map[string]string) Counters {
	var c Counters
	c.Allowed, _ = strconv.ParseInt(h["allowed"], 10, 64)
	c.Denied, _ = strconv.ParseInt(h["denied"], 10, 64)
	return c
}

// routesFromHash agrupa campos "<METHOD> <path>:allowed|denied".
func routesFromHash(h map[string]string) map[string]Counters {
	out := make(map[string]Counters)
	for field, v := range h {
		i := strings.LastIndexByte(field, ':')
		if i <= 0 {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		c := out[field[:i]]
		switch field[i+1:] {
		case "allowed":
			c.Allowed += n
		case "denied":
			c.Denied += n
		default:
			continue
		}
		out[field[:i]] = c
	}
	return out
}

// routeField devolve "" sem path: requests fora de uma rota conhecida só entram no total.
func routeField(method, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(method) + " " + path)
}
