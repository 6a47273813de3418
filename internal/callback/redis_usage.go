package callback

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	usageKeyPrefix = "passthru:usage:"
	usageTimeout   = 2 * time.Second
)

// UsageStore is the slice of the redis client the usage callback needs.
type UsageStore interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisUsageCallback keeps per-provider/model usage counters in Redis
// hashes so billing jobs can read them without parsing logs.
type RedisUsageCallback struct {
	rdb UsageStore
}

// NewRedisUsageCallback wraps a redis client. rdb is usually a
// redis.UniversalClient.
func NewRedisUsageCallback(rdb UsageStore) *RedisUsageCallback {
	return &RedisUsageCallback{rdb: rdb}
}

// UsageKey returns the hash key counters are written to.
func UsageKey(provider, model string) string {
	if model == "" {
		model = "_unknown"
	}
	return usageKeyPrefix + provider + ":" + model
}

func (c *RedisUsageCallback) LogSuccess(data LogData) {
	c.incr(data, map[string]int64{
		"requests":          1,
		"prompt_tokens":     int64(data.PromptTokens),
		"completion_tokens": int64(data.CompletionTokens),
	})
}

func (c *RedisUsageCallback) LogFailure(data LogData) {
	c.incr(data, map[string]int64{
		"requests": 1,
		"failures": 1,
	})
}

func (c *RedisUsageCallback) incr(data LogData, fields map[string]int64) {
	ctx, cancel := context.WithTimeout(context.Background(), usageTimeout)
	defer cancel()

	key := UsageKey(data.Provider, data.Model)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for field, n := range fields {
			if n == 0 {
				continue
			}
			pipe.HIncrBy(ctx, key, field, n)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("usage counters not recorded")
	}
}
