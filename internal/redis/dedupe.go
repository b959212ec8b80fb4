package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeTTL = 24 * time.Hour

// EventDeduper tracks processed billing webhook event IDs. SET NX with a TTL
// makes the first-delivery check atomic across instances; after the TTL the
// provider has long stopped retrying, so the key can expire.
type EventDeduper struct {
	client *redis.Client
}

func NewEventDeduper(client *redis.Client) *EventDeduper {
	return &EventDeduper{client: client}
}

// FirstDelivery reports whether eventID has not been processed before,
// marking it as processed in the same round trip.
func (d *EventDeduper) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, "billing:event:"+eventID, 1, dedupeTTL).Result()
}

// Forget drops the seen marker so the provider's retry of a failed delivery
// is processed instead of being skipped as a duplicate.
func (d *EventDeduper) Forget(ctx context.Context, eventID string) error {
	return d.client.Del(ctx, "billing:event:"+eventID).Err()
}
