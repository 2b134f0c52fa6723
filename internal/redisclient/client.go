package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// MarkTransactionProcessed records a webhook transaction_id as seen.
// This is a best-effort fast path; the database payment row remains
// the authoritative dedupe record.
func (c *Client) MarkTransactionProcessed(ctx context.Context, transactionID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("webhook:tx:%s", transactionID), "1", ttl).Err()
}

// IsTransactionProcessed checks whether a transaction_id was already seen
func (c *Client) IsTransactionProcessed(ctx context.Context, transactionID string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("webhook:tx:%s", transactionID)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// SetProductAvailability mirrors a product's availability flag for
// cheap storefront reads
func (c *Client) SetProductAvailability(ctx context.Context, productID int64, available bool) error {
	val := "0"
	if available {
		val = "1"
	}
	return c.rdb.Set(ctx, fmt.Sprintf("product:available:%d", productID), val, 0).Err()
}

// SetProductAvailabilityBatch mirrors availability for many products
// in one round trip
func (c *Client) SetProductAvailabilityBatch(ctx context.Context, availability map[int64]bool) error {
	pipe := c.rdb.Pipeline()
	for productID, available := range availability {
		val := "0"
		if available {
			val = "1"
		}
		pipe.Set(ctx, fmt.Sprintf("product:available:%d", productID), val, 0)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetProductAvailability reads the mirrored availability flag.
// Returns found=false when the product has no entry yet.
func (c *Client) GetProductAvailability(ctx context.Context, productID int64) (available, found bool, err error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("product:available:%d", productID)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}
