package fusion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dwdfusion/dwdfusion/internal/weather"
)

// hotCacheKey is the single Redis key the fused series is published
// under; Fetch reads it back. No handler in cmd/dwdfusiond reads it:
// GET /state serves the latched sensor-state blob instead.
const hotCacheKey = "dwdfusion:fused"

const hotCacheTTL = 15 * time.Minute

// hotCachePayload is the JSON shape published to Redis: the merged
// observation/forecast series plus the current synoptic observation.
type hotCachePayload struct {
	Merged      []weather.Datapoint `json:"merged"`
	Observation *weather.Datapoint  `json:"observation"`
}

// HotCache publishes the freshly merged series to Redis after each
// successful commit, the same role the teacher's RedisCache plays for
// its request-scoped weather lookups (cache.go), repurposed here as a
// cross-replica fan-out instead of a per-request memoisation layer.
type HotCache struct {
	client *redis.Client
}

// NewHotCache wraps an existing Redis client. A nil client is valid and
// makes Publish a no-op, so the hot cache stays strictly optional.
func NewHotCache(client *redis.Client) *HotCache {
	return &HotCache{client: client}
}

// Publish marshals the given series as JSON and stores them under a
// single well-known key with a 15-minute TTL (hotCacheTTL, well above
// the 30-second refresh cadence), so the key expires on its own once no
// refresh cycle has updated the cache for that long, rather than
// serving indefinitely-old data.
func (h *HotCache) Publish(ctx context.Context, merged []weather.Datapoint, obs *weather.Datapoint) error {
	if h == nil || h.client == nil {
		return nil
	}
	payload, err := json.Marshal(hotCachePayload{Merged: merged, Observation: obs})
	if err != nil {
		return err
	}
	return h.client.Set(ctx, hotCacheKey, payload, hotCacheTTL).Err()
}

// Fetch retrieves the most recently published series, or an error if
// nothing has been published yet (or the client is nil).
func (h *HotCache) Fetch(ctx context.Context) ([]weather.Datapoint, *weather.Datapoint, error) {
	if h == nil || h.client == nil {
		return nil, nil, redis.Nil
	}
	raw, err := h.client.Get(ctx, hotCacheKey).Bytes()
	if err != nil {
		return nil, nil, err
	}
	var payload hotCachePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, err
	}
	return payload.Merged, payload.Observation, nil
}
