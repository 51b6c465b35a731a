// Package projector keeps the order status cache in step with order events.
package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Service struct {
	Redis       *redis.Client
	Cache       *redisx.StatusCache
	ServiceName string
	Log         *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// HandleOrderEvent is the consumer handler. Each event id is applied at
// most once; a failed cache write gives the claim back so a redelivery can
// apply it.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.log().Warn("drop undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	orderID, st, known, err := project(env)
	if err != nil {
		s.log().Warn("drop malformed payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if !known {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	claimed, err := redisx.Claim(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("claim event %s: %w", env.EventID, err)
	}
	if !claimed {
		return nil
	}

	if err := s.Cache.Set(ctx, orderID, st); err != nil {
		_ = s.Redis.Del(context.WithoutCancel(ctx), dkey).Err()
		return fmt.Errorf("cache status for %s: %w", orderID, err)
	}
	s.log().Debug("projected order status",
		zap.String("order_id", orderID), zap.String("status", st.Status), zap.String("event", env.EventType))
	return nil
}

// project maps an envelope to the cached status. known is false for event
// types this projection ignores.
func project(env orders.Envelope) (orderID string, st redisx.OrderStatus, known bool, err error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return "", st, false, err
		}
		return p.OrderID, status(p.UserID, p.Status, p.PaymentStatus, env.OccurredAt), true, nil
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return "", st, false, err
		}
		return p.OrderID, status(p.UserID, p.To, p.PaymentStatus, p.ChangedAt), true, nil
	case orders.EventOrderCancelled:
		p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
		if err != nil {
			return "", st, false, err
		}
		return p.OrderID, status(p.UserID, orders.StatusCancelled, p.PaymentStatus, p.CancelledAt), true, nil
	}
	return "", st, false, nil
}

func status(userID string, s orders.Status, ps orders.PaymentStatus, at time.Time) redisx.OrderStatus {
	return redisx.OrderStatus{UserID: userID, Status: string(s), PaymentStatus: string(ps), UpdatedAt: at.UTC()}
}
