package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReceiptCache implements ports.ReceiptCache. It only short-circuits
// redelivered payment callbacks; the payment_receipts table stays authoritative.
type ReceiptCache struct {
	client *goredis.Client
	prefix string
}

// NewReceiptCache creates a new Redis-backed receipt cache.
func NewReceiptCache(client *goredis.Client) *ReceiptCache {
	return &ReceiptCache{
		client: client,
		prefix: "receipt:",
	}
}

// Seen reports whether receiptID was remembered and has not expired.
func (c *ReceiptCache) Seen(ctx context.Context, receiptID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+receiptID).Result()
	if err != nil {
		return false, fmt.Errorf("redis receipt exists: %w", err)
	}
	return n > 0, nil
}

// Remember stores receiptID with SET NX; remembering twice is not an error.
func (c *ReceiptCache) Remember(ctx context.Context, receiptID string, ttl time.Duration) error {
	err := c.client.SetArgs(ctx, c.prefix+receiptID, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis receipt remember: %w", err)
	}
	return nil
}
