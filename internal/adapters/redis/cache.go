package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// MarkSettled records a completed settlement so replayed webhooks can be
// short-circuited without opening a transaction. The database guard
// remains authoritative; this is only a fast path.
func (c *Cache) MarkSettled(ctx context.Context, bookingID string, ttl time.Duration) error {
	return c.client.Set(ctx, "settled:"+bookingID, "1", ttl).Err()
}

func (c *Cache) IsSettled(ctx context.Context, bookingID string) (bool, error) {
	res, err := c.client.Exists(ctx, "settled:"+bookingID).Result()
	if err != nil {
		return false, err
	}
	return res > 0, nil
}
