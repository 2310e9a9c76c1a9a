package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces limiter keys for the register API.
const DefaultRedisPrefix = "register:ratelimit:"

// RedisLimiter is a sliding window limiter over Redis sorted sets, shared by
// every API replica pointing at the same Redis. Each admitted request is one
// member scored by its arrival time in nanoseconds. Rejected requests are not
// kept, so a client retrying while limited does not push its own reset back.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

func (l RedisLimiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l RedisLimiter) redisKey(key string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return prefix + key
}

// Allow records an event for key and reports whether it fits the window. reset
// is when the oldest admitted event leaves the window.
func (l RedisLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := l.now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	redisKey := l.redisKey(key)
	member := uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, now.Add(window), fmt.Errorf("ratelimit: redis pipeline: %w", err)
	}

	reset = now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) == 1 {
		reset = time.Unix(0, int64(oldest[0].Score)).Add(window)
	}

	current := int(countCmd.Val())
	if current > max {
		if err = l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, 0, reset, fmt.Errorf("ratelimit: drop rejected event: %w", err)
		}
		return false, 0, reset, nil
	}
	return true, max - current, reset, nil
}
