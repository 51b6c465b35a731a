package projector

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Service{Redis: rdb, Cache: &redisx.StatusCache{RDB: rdb}, ServiceName: "projector"}, mr
}

func message(t *testing.T, eventType, eventID string, at time.Time, payload any) kafkago.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	b, err := json.Marshal(orders.Envelope{
		EventID: eventID, EventType: eventType, EventVersion: 1, OccurredAt: at, Producer: "api", Payload: raw,
	})
	require.NoError(t, err)
	return kafkago.Message{Key: []byte("o1"), Value: b}
}

func TestHandleOrderEvent_FollowsLifecycle(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.HandleOrderEvent(ctx, message(t, orders.EventOrderCreated, uuid.NewString(), t0,
		orders.OrderCreatedPayload{OrderID: "o1", UserID: "u1", Status: orders.StatusPending, PaymentStatus: orders.PaymentPending})))
	got, ok, err := s.Cache.Get(ctx, "o1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, s.HandleOrderEvent(ctx, message(t, orders.EventOrderStatusChanged, uuid.NewString(), t0.Add(time.Minute),
		orders.OrderStatusChangedPayload{OrderID: "o1", From: orders.StatusPending, To: orders.StatusProcessing, ChangedAt: t0.Add(time.Minute)})))
	got, _, _ = s.Cache.Get(ctx, "o1")
	assert.Equal(t, "processing", got.Status)

	require.NoError(t, s.HandleOrderEvent(ctx, message(t, orders.EventOrderCancelled, uuid.NewString(), t0.Add(2*time.Minute),
		orders.OrderCancelledPayload{OrderID: "o1", From: orders.StatusProcessing, CancelledAt: t0.Add(2 * time.Minute)})))
	got, _, _ = s.Cache.Get(ctx, "o1")
	assert.Equal(t, "cancelled", got.Status)
}

func TestHandleOrderEvent_DeduplicatesByEventID(t *testing.T) {
	s, mr := newService(t)
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	m := message(t, orders.EventOrderCreated, "evt-1", t0, orders.OrderCreatedPayload{OrderID: "o1", Status: orders.StatusPending})

	require.NoError(t, s.HandleOrderEvent(ctx, m))
	require.NoError(t, s.Cache.Invalidate(ctx, "o1"))
	require.NoError(t, s.HandleOrderEvent(ctx, m))

	_, ok, err := s.Cache.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok, "replayed event must not be applied twice")
	assert.True(t, mr.Exists("dedup:projector:evt-1"))
}

func TestHandleOrderEvent_IgnoresUnknownAndGarbage(t *testing.T) {
	s, mr := newService(t)
	ctx := context.Background()

	assert.NoError(t, s.HandleOrderEvent(ctx, kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, s.HandleOrderEvent(ctx, message(t, "SomethingElse", "e1", time.Now(), map[string]string{})))
	assert.Empty(t, mr.Keys())
}

func TestHandleOrderEvent_RedisDownIsRetryable(t *testing.T) {
	s, mr := newService(t)
	mr.Close()
	err := s.HandleOrderEvent(context.Background(), message(t, orders.EventOrderCreated, "e1", time.Now(),
		orders.OrderCreatedPayload{OrderID: "o1", Status: orders.StatusPending}))
	assert.Error(t, err)
}
