package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	replayPending    = "PENDING"
	replayDonePrefix = "DONE:"

	// replayClaimTTL bounds how long a crashed request keeps its key claimed.
	replayClaimTTL = time.Minute
)

type ReplayState int

const (
	// ReplayNew means the caller now owns the key and must Finish or
	// Abandon it.
	ReplayNew ReplayState = iota
	// ReplayDone means a previous request finished; its response is returned.
	ReplayDone
	// ReplayInFlight means another request owns the key right now.
	ReplayInFlight
)

// ParkReplays remembers the response of a park request under its
// Idempotency-Key, so a retried request gets the ticket issued the first
// time instead of a second ticket or ALREADY_PARKED.
type ParkReplays struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewParkReplays(rdb *redis.Client, ttl time.Duration) *ParkReplays {
	return &ParkReplays{rdb: rdb, ttl: ttl}
}

// Begin claims key for a new park request.
//
// Returns:
//   - ReplayNew: the key is claimed by the caller.
//   - ReplayDone and the stored response.
//   - ReplayInFlight: another request holds the claim.
func (p *ParkReplays) Begin(ctx context.Context, key string) (ReplayState, []byte, error) {
	const op = "redisrepo.ParkReplays.Begin"

	k := KeyIdemPark(key)

	if resp, ok, err := p.stored(ctx, k); err != nil || ok {
		if err != nil {
			return 0, nil, fmt.Errorf("%s: %w", op, err)
		}
		return ReplayDone, resp, nil
	}

	claimed, err := p.rdb.SetNX(ctx, k, replayPending, replayClaimTTL).Result()
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	if claimed {
		return ReplayNew, nil, nil
	}

	// Lost the race; the winner may have finished in between.
	resp, ok, err := p.stored(ctx, k)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		return ReplayDone, resp, nil
	}

	return ReplayInFlight, nil, nil
}

// Finish stores the response of a claimed key for the replay TTL.
func (p *ParkReplays) Finish(ctx context.Context, key string, resp []byte) error {
	const op = "redisrepo.ParkReplays.Finish"

	if err := p.rdb.Set(ctx, KeyIdemPark(key), replayDonePrefix+string(resp), p.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Abandon drops the claim of a failed request so the client may retry it.
func (p *ParkReplays) Abandon(ctx context.Context, key string) error {
	const op = "redisrepo.ParkReplays.Abandon"

	if err := p.rdb.Del(ctx, KeyIdemPark(key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *ParkReplays) stored(ctx context.Context, k string) ([]byte, bool, error) {
	v, err := p.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	resp, ok := strings.CutPrefix(v, replayDonePrefix)
	if !ok {
		return nil, false, nil
	}

	return []byte(resp), true, nil
}
