package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type OrderStatus struct {
	UserID        string    `json:"user_id,omitempty"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StatusCache holds the last known status per order.
type StatusCache struct {
	RDB *redis.Client
	TTL time.Duration
}

func (c *StatusCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return TTLStatusCache
}

// Get reports false on a miss.
func (c *StatusCache) Get(ctx context.Context, orderID string) (OrderStatus, bool, error) {
	var s OrderStatus
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, false, fmt.Errorf("decode cached status: %w", err)
	}
	return s, true, nil
}

// Set stores s unless the cached entry is newer. The check and the write
// run under WATCH, so a concurrent writer makes this one retry.
func (c *StatusCache) Set(ctx context.Context, orderID string, s OrderStatus) error {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < 3; attempt++ {
		err = c.RDB.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				var old OrderStatus
				if json.Unmarshal(cur, &old) == nil && old.UpdatedAt.After(s.UpdatedAt) {
					return nil
				}
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, b, c.ttl())
				return nil
			})
			return err
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (c *StatusCache) Invalidate(ctx context.Context, orderID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}
