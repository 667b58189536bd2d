package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache holds JSON snapshots of facility reads. Concurrent misses on one key
// share a single load.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// ReadThrough returns the snapshot stored under key, or runs load and stores
// its result for ttl. An entry that no longer decodes into T is reloaded.
// A failed store is ignored.
func ReadThrough[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	const op = "redisrepo.ReadThrough"

	var zero T

	if v, ok, err := lookup[T](ctx, c, key); err != nil || ok {
		if err != nil {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		return v, nil
	}

	res, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok, err := lookup[T](ctx, c, key); err != nil || ok {
			return v, err
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		if b, err := json.Marshal(v); err == nil {
			_ = c.rdb.Set(ctx, key, string(b), ttl).Err()
		}

		return v, nil
	})
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected cached type %T", op, res)
	}

	return v, nil
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var v T

	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}

	if err := json.Unmarshal(b, &v); err != nil {
		var zero T
		return zero, false, nil
	}

	return v, true, nil
}

// InvalidateFacility drops every cached view of the facility.
func (c *Cache) InvalidateFacility(ctx context.Context, facilityID int64) error {
	const op = "redisrepo.Cache.InvalidateFacility"

	err := c.rdb.Del(
		ctx,
		KeyFacilitySummary(facilityID),
		KeyFacilitySpots(facilityID, false),
		KeyFacilitySpots(facilityID, true),
	).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
