package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idempotency maps a caller's idempotency key to the order it created.
// The database unique constraint stays authoritative; this is a fast path.
type Idempotency struct {
	RDB *redis.Client
	TTL time.Duration
}

func (i *Idempotency) Lookup(ctx context.Context, userID, key string) (string, bool, error) {
	id, err := i.RDB.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (i *Idempotency) Remember(ctx context.Context, userID, key, orderID string) error {
	ttl := i.TTL
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return i.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key), orderID, ttl).Err()
}
