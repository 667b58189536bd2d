package redisrepo

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	ID        int64 `json:"id"`
	Available int   `json:"available"`
}

func TestReadThroughLoadsOnMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	ctx := context.Background()
	key := KeyFacilitySummary(7)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, `{"id":7,"available":12}`, 15*time.Second).SetVal("OK")

	loads := 0
	got, err := ReadThrough(ctx, c, key, 15*time.Second, func(context.Context) (summary, error) {
		loads++
		return summary{ID: 7, Available: 12}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, summary{ID: 7, Available: 12}, got)
	assert.Equal(t, 1, loads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadThroughServesHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	key := KeyFacilitySummary(7)

	mock.ExpectGet(key).SetVal(`{"id":7,"available":3}`)

	got, err := ReadThrough(context.Background(), c, key, time.Second, func(context.Context) (summary, error) {
		t.Fatal("loader must not run on a hit")
		return summary{}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadThroughPropagatesLoaderError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	key := KeyFacilitySummary(1)
	boom := errors.New("boom")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()

	_, err := ReadThrough(context.Background(), c, key, time.Second, func(context.Context) (summary, error) {
		return summary{}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateFacility(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)

	mock.ExpectDel(
		"parkgo:v1:facility:3:summary",
		"parkgo:v1:facility:3:spots:all",
		"parkgo:v1:facility:3:spots:available",
	).SetVal(2)

	require.NoError(t, c.InvalidateFacility(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishFacilityChanged(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewFacilitiesPubSub(db)

	mock.ExpectPublish("parkgo:v1:facilities:changed", `{"type":"facility_changed","facility_id":9}`).SetVal(1)

	require.NoError(t, p.PublishFacilityChanged(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodeFacilityChanged(t *testing.T) {
	id, ok := decodeFacilityChanged(`{"type":"facility_changed","facility_id":4}`)
	assert.True(t, ok)
	assert.Equal(t, int64(4), id)

	_, ok = decodeFacilityChanged(`{"type":"other","facility_id":4}`)
	assert.False(t, ok)

	_, ok = decodeFacilityChanged(`{"type":"facility_changed"}`)
	assert.False(t, ok)

	_, ok = decodeFacilityChanged(`not json`)
	assert.False(t, ok)
}

func TestChangeNotifierSwallowsErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	n := NewChangeNotifier(NewCache(db), NewFacilitiesPubSub(db), slog.New(slog.DiscardHandler))

	mock.ExpectDel(
		KeyFacilitySummary(2),
		KeyFacilitySpots(2, false),
		KeyFacilitySpots(2, true),
	).SetErr(errors.New("connection refused"))
	mock.ExpectPublish(ChannelFacilitiesChanged(), `{"type":"facility_changed","facility_id":2}`).SetVal(0)

	assert.NotPanics(t, func() { n.FacilityChanged(context.Background(), 2) })
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadThroughReloadsUndecodableEntry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	key := KeyFacilitySummary(5)

	mock.ExpectGet(key).SetVal(`{"id":"five"}`)
	mock.ExpectGet(key).SetVal(`{"id":"five"}`)
	mock.ExpectSet(key, `{"id":5,"available":1}`, time.Second).SetVal("OK")

	got, err := ReadThrough(context.Background(), c, key, time.Second, func(context.Context) (summary, error) {
		return summary{ID: 5, Available: 1}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkReplays(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewParkReplays(db, 2*time.Hour)
	ctx := context.Background()
	key := KeyIdemPark("abc")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetNX(key, "PENDING", time.Minute).SetVal(true)
	mock.ExpectSet(key, `DONE:{"ticket_number":"TKT-1"}`, 2*time.Hour).SetVal("OK")
	mock.ExpectGet(key).SetVal(`DONE:{"ticket_number":"TKT-1"}`)

	state, _, err := p.Begin(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, ReplayNew, state)

	require.NoError(t, p.Finish(ctx, "abc", []byte(`{"ticket_number":"TKT-1"}`)))

	state, resp, err := p.Begin(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, ReplayDone, state)
	assert.JSONEq(t, `{"ticket_number":"TKT-1"}`, string(resp))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkReplaysContended(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewParkReplays(db, time.Hour)
	ctx := context.Background()
	key := KeyIdemPark("xyz")

	// Another request holds the claim.
	mock.ExpectGet(key).SetVal("PENDING")
	mock.ExpectSetNX(key, "PENDING", time.Minute).SetVal(false)
	mock.ExpectGet(key).SetVal("PENDING")

	// It finished between our GET and SETNX.
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetNX(key, "PENDING", time.Minute).SetVal(false)
	mock.ExpectGet(key).SetVal(`DONE:{"ticket_number":"TKT-2"}`)

	// It failed and gave the key back.
	mock.ExpectDel(key).SetVal(1)

	state, _, err := p.Begin(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, ReplayInFlight, state)

	state, resp, err := p.Begin(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, ReplayDone, state)
	assert.JSONEq(t, `{"ticket_number":"TKT-2"}`, string(resp))

	require.NoError(t, p.Abandon(ctx, "xyz"))

	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	_, _, err = p.Begin(ctx, "xyz")
	assert.ErrorContains(t, err, "redisrepo.ParkReplays.Begin")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlidingWindowLimiter(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewSlidingWindowLimiter(db, "park", 2, time.Minute)

	now := time.UnixMilli(1_700_000_000_000)
	l.now = func() time.Time { return now }
	l.member = func() string { return "m1" }

	sha := redis.NewScript(luaRecordHit).Hash()
	key := KeyRateLimit("park", "10.0.0.1")
	args := []any{now.UnixMilli(), int64(60000), "m1"}

	mock.ExpectEvalSha(sha, []string{key}, args...).SetVal([]any{int64(2), now.UnixMilli() - 10_000})
	mock.ExpectEvalSha(sha, []string{key}, args...).SetVal([]any{int64(3), now.UnixMilli() - 58_500})
	mock.ExpectEvalSha(sha, []string{key}, args...).SetVal([]any{int64(1)})

	allowed, retry, err := l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retry)

	allowed, retry, err = l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 1500*time.Millisecond, retry)

	_, _, err = l.Allow(context.Background(), "10.0.0.1")
	assert.ErrorContains(t, err, "unexpected script result")

	assert.NoError(t, mock.ExpectationsWereMet())
}
