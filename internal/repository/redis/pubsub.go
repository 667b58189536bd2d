package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const msgFacilityChanged = "facility_changed"

// FacilitiesPubSub broadcasts facility changes to every replica.
type FacilitiesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewFacilitiesPubSub(rdb *redis.Client) *FacilitiesPubSub {
	return &FacilitiesPubSub{
		rdb:     rdb,
		channel: ChannelFacilitiesChanged(),
	}
}

type facilityChangedMsg struct {
	Type       string `json:"type"`
	FacilityID int64  `json:"facility_id"`
}

func (p *FacilitiesPubSub) PublishFacilityChanged(ctx context.Context, facilityID int64) error {
	const op = "redisrepo.FacilitiesPubSub.PublishFacilityChanged"

	b, err := json.Marshal(facilityChangedMsg{Type: msgFacilityChanged, FacilityID: facilityID})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, string(b)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Subscribe calls handler for every facility change until ctx is done.
func (p *FacilitiesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, facilityID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if id, ok := decodeFacilityChanged(m.Payload); ok {
				handler(ctx, id)
			}
		}
	}
}

func decodeFacilityChanged(payload string) (int64, bool) {
	var msg facilityChangedMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return 0, false
	}
	if msg.Type != msgFacilityChanged || msg.FacilityID == 0 {
		return 0, false
	}
	return msg.FacilityID, true
}
