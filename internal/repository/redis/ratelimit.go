package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Records one hit in a sorted set scored by time, drops hits older than the
// window and returns {hits in window, score of the oldest hit}.
// KEYS[1] = key, ARGV[1] = now_ms, ARGV[2] = window_ms, ARGV[3] = member
const luaRecordHit = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
redis.call('ZADD', KEYS[1], now, ARGV[3])
redis.call('PEXPIRE', KEYS[1], window)

local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {redis.call('ZCARD', KEYS[1]), tonumber(oldest[2])}
`

// SlidingWindowLimiter allows at most limit hits per client in any window.
// Refused hits count too, so a client hammering the API stays refused.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	script *redis.Script

	now    func() time.Time
	member func() string
}

func NewSlidingWindowLimiter(rdb *redis.Client, scope string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaRecordHit),
		now:    time.Now,
		member: uuid.NewString,
	}
}

// Allow records a hit for client. When the hit is over the limit it reports
// how long until the oldest hit in the window expires.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, client string) (bool, time.Duration, error) {
	const op = "redisrepo.SlidingWindowLimiter.Allow"

	now := l.now().UnixMilli()

	vals, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{KeyRateLimit(l.scope, client)},
		now, l.window.Milliseconds(), l.member(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(vals) != 2 {
		return false, 0, fmt.Errorf("%s: unexpected script result %v", op, vals)
	}

	hits, oldest := vals[0], vals[1]
	if hits <= int64(l.limit) {
		return true, 0, nil
	}

	retry := time.Duration(l.window.Milliseconds()-(now-oldest)) * time.Millisecond

	return false, max(retry, 0), nil
}
