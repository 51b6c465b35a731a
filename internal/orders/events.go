package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID       string          `json:"order_id"`
	ExternalID    string          `json:"external_id,omitempty"`
	UserID        string          `json:"user_id"`
	Items         []LineItem      `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        Status          `json:"order_status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

type OrderStatusChangedPayload struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	From          Status        `json:"from"`
	To            Status        `json:"to"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	ChangedBy     string        `json:"changed_by"`
	ChangedAt     time.Time     `json:"changed_at"`
}

type OrderCancelledPayload struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	From          Status        `json:"from"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CancelledBy   string        `json:"cancelled_by"`
	CancelledAt   time.Time     `json:"cancelled_at"`
	Restocked     []ItemInput   `json:"restocked"`
}

// EventSink receives encoded envelopes, keyed by order id.
type EventSink interface {
	Emit(ctx context.Context, key []byte, eventType string, value []byte) error
}

type traceKey struct{}

// WithTraceID attaches the request id carried into emitted envelopes.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}

func newEnvelope(ctx context.Context, producer, eventType, orderID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID(ctx),
		CorrelationID: orderID,
		Payload:       b,
	}, nil
}
