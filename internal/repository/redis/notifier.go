package redisrepo

import (
	"context"
	"log/slog"
)

// ChangeNotifier invalidates the local view of a facility and tells the other
// replicas to do the same.
type ChangeNotifier struct {
	cache  *Cache
	pubsub *FacilitiesPubSub
	logger *slog.Logger
}

func NewChangeNotifier(cache *Cache, pubsub *FacilitiesPubSub, logger *slog.Logger) *ChangeNotifier {
	return &ChangeNotifier{cache: cache, pubsub: pubsub, logger: logger}
}

// FacilityChanged never fails the caller, stale entries expire with their TTL.
func (n *ChangeNotifier) FacilityChanged(ctx context.Context, facilityID int64) {
	if n.cache != nil {
		if err := n.cache.InvalidateFacility(ctx, facilityID); err != nil {
			n.logger.Warn("cache invalidation failed", "facility_id", facilityID, "error", err)
		}
	}

	if n.pubsub != nil {
		if err := n.pubsub.PublishFacilityChanged(ctx, facilityID); err != nil {
			n.logger.Warn("publish facility change failed", "facility_id", facilityID, "error", err)
		}
	}
}
