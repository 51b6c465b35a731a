package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service places orders and drives their lifecycle. Build it once at startup
// with every collaborator set; Events may be nil.
type Service struct {
	Store          Store
	Ledger         inventory.Ledger
	Gateway        payment.Gateway
	Pricing        Pricing
	Coupons        Coupons
	Events         EventSink
	Currency       string
	GatewayTimeout time.Duration
	Producer       string
	Log            *zap.Logger
	Now            func() time.Time
}

type CreateOrderInput struct {
	UserID          string
	Items           []ItemInput
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	CouponCode      string
	ExternalID      string // idempotency key, optional
	Notes           string
}

type Placed struct {
	Order        *Order
	ClientSecret string // gateway-hosted payments only
	Existing     bool   // idempotent replay, nothing reserved
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func validate(in CreateOrderInput) error {
	if in.UserID == "" {
		return validationf("user is required")
	}
	if len(in.Items) == 0 {
		return ErrEmptyOrder
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			return validationf("items[%d]: product is required", i)
		}
		if it.Qty < 1 {
			return validationf("items[%d]: quantity must be at least 1", i)
		}
	}
	switch in.PaymentMethod {
	case MethodCard, MethodPayPal, MethodStripe:
	default:
		return validationf("unsupported payment method %q", in.PaymentMethod)
	}
	if in.ShippingAddress.IsZero() {
		return validationf("shipping address is required")
	}
	return nil
}

// CreateOrder validates, reserves stock item by item, prices the reserved
// lines, opens a payment intent when the method is gateway hosted and
// persists the order. Any failure after the first reservation releases
// exactly the reservations made so far.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Placed, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var discount DiscountFunc
	if in.CouponCode != "" {
		d, ok := s.Coupons.Lookup(in.CouponCode)
		if !ok {
			return nil, validationf("unknown coupon %q", in.CouponCode)
		}
		discount = d
	}

	if in.ExternalID != "" {
		if o, err := s.Store.GetByExternalID(ctx, in.UserID, in.ExternalID); err == nil {
			return &Placed{Order: o, Existing: true}, nil
		} else if !errors.Is(err, ErrOrderNotFound) {
			return nil, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	res := inventory.NewReservations(s.Ledger)
	lines := make([]PricedLine, 0, len(in.Items))
	for i, it := range in.Items {
		r, err := res.Reserve(ctx, it.ProductID, it.Qty)
		if err != nil {
			s.rollback(ctx, res, "reserve")
			return nil, fmt.Errorf("items[%d] %s: %w", i, it.ProductID, err)
		}
		lines = append(lines, PricedLine{UnitPrice: r.UnitPrice, Qty: r.Qty})
	}

	totals := s.Pricing.Quote(lines, discount, in.ShippingAddress)
	orderID := uuid.NewString()

	var intent payment.Intent
	if in.PaymentMethod.RequiresGateway() {
		var err error
		intent, err = s.createIntent(ctx, orderID, in.UserID, totals)
		if err != nil {
			s.rollback(ctx, res, "payment")
			return nil, err
		}
	}

	now := s.now()
	held := res.Held()
	items := make([]LineItem, 0, len(held))
	for _, h := range held {
		items = append(items, LineItem{ProductID: h.ProductID, Quantity: h.Qty, UnitPrice: h.UnitPrice})
	}
	o := &Order{
		ID:              orderID,
		ExternalID:      in.ExternalID,
		UserID:          in.UserID,
		Items:           items,
		Totals:          totals,
		ShippingAddress: in.ShippingAddress,
		CouponCode:      in.CouponCode,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   PaymentPending,
		Status:          StatusPending,
		PaymentIntentID: intent.ID,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Store.Insert(ctx, o); err != nil {
		s.rollback(ctx, res, "persist")
		if errors.Is(err, ErrDuplicateOrder) && in.ExternalID != "" {
			if intent.ID != "" {
				s.log().Warn("payment intent orphaned by duplicate order",
					zap.String("intent_id", intent.ID), zap.String("external_id", in.ExternalID))
			}
			existing, gerr := s.Store.GetByExternalID(ctx, in.UserID, in.ExternalID)
			if gerr != nil {
				return nil, fmt.Errorf("load concurrent duplicate: %w", gerr)
			}
			return &Placed{Order: existing, Existing: true}, nil
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}
	res.Commit()

	s.emit(ctx, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:       o.ID,
		ExternalID:    o.ExternalID,
		UserID:        o.UserID,
		Items:         o.Items,
		TotalAmount:   o.Totals.GrandTotal,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
	})
	s.log().Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Totals.GrandTotal.String()))

	return &Placed{Order: o, ClientSecret: intent.ClientSecret}, nil
}

func (s *Service) createIntent(ctx context.Context, orderID, userID string, t Totals) (payment.Intent, error) {
	if s.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.GatewayTimeout)
		defer cancel()
	}
	intent, err := s.Gateway.CreateIntent(ctx, t.GrandTotal, s.Currency, map[string]string{
		"order_id": orderID,
		"user_id":  userID,
	})
	if err != nil {
		if !errors.Is(err, payment.ErrGateway) {
			err = fmt.Errorf("%w: %w", payment.ErrGateway, err)
		}
		return payment.Intent{}, err
	}
	return intent, nil
}

func (s *Service) rollback(ctx context.Context, res *inventory.Reservations, stage string) {
	if err := res.Rollback(ctx); err != nil {
		s.log().Error("release reservations", zap.String("stage", stage), zap.Error(err))
	}
}

func (s *Service) emit(ctx context.Context, eventType, orderID string, payload any) {
	if s.Events == nil {
		return
	}
	env, err := newEnvelope(ctx, s.Producer, eventType, orderID, payload)
	if err == nil {
		var b []byte
		if b, err = json.Marshal(env); err == nil {
			err = s.Events.Emit(ctx, PartitionKey(orderID), eventType, b)
		}
	}
	if err != nil {
		s.log().Warn("emit order event", zap.String("event", eventType), zap.String("order_id", orderID), zap.Error(err))
	}
}
