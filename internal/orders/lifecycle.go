package orders

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"go.uber.org/zap"
)

// StatusOptions are optional fulfilment fields written with a status change.
type StatusOptions struct {
	TrackingNumber *string
	EstimatedAt    *time.Time
}

// Get returns the order if the caller owns it or is an admin.
func (s *Service) Get(ctx context.Context, req auth.Principal, id string) (*Order, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Owns(o.UserID) {
		return nil, fmt.Errorf("%w: not authorized to view this order", ErrForbidden)
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, req auth.Principal) ([]Order, error) {
	return s.Store.ListByUser(ctx, req.UserID)
}

func (s *Service) ListForVendor(ctx context.Context, req auth.Principal) ([]Order, error) {
	if req.Role != auth.RoleVendor {
		return nil, fmt.Errorf("%w: vendor role required", ErrForbidden)
	}
	return s.Store.ListByVendor(ctx, req.UserID)
}

// UpdateStatus moves an order along the fulfilment table. Admins and vendors
// only. Moving to cancelled takes the cancel path so stock is restored once.
func (s *Service) UpdateStatus(ctx context.Context, req auth.Principal, id string, to Status, opts StatusOptions) (*Order, error) {
	if !req.CanFulfil() {
		return nil, fmt.Errorf("%w: not authorized to update this order", ErrForbidden)
	}
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if to == StatusCancelled {
		return s.cancel(ctx, req, o)
	}
	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: cannot move order from %s to %s", ErrInvalidTransition, o.Status, to)
	}

	now := s.now()
	ch := StatusChange{At: now, TrackingNumber: opts.TrackingNumber, EstimatedAt: opts.EstimatedAt}
	if to == StatusDelivered {
		ch.DeliveredAt = &now
	}
	updated, err := s.Store.UpdateStatus(ctx, id, []Status{o.Status}, to, ch)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, EventOrderStatusChanged, id, OrderStatusChangedPayload{
		OrderID:       id,
		UserID:        updated.UserID,
		From:          o.Status,
		To:            to,
		PaymentStatus: updated.PaymentStatus,
		ChangedBy:     req.UserID,
		ChangedAt:     now,
	})
	s.log().Info("order status changed",
		zap.String("order_id", id), zap.String("from", string(o.Status)), zap.String("to", string(to)))
	return updated, nil
}

// Cancel is allowed for the owner or an admin while the order is pending or
// processing. Every line's quantity goes back to the ledger; a product that
// disappeared does not abort the cancellation.
func (s *Service) Cancel(ctx context.Context, req auth.Principal, id string) (*Order, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Owns(o.UserID) {
		return nil, fmt.Errorf("%w: not authorized to cancel this order", ErrForbidden)
	}
	return s.cancel(ctx, req, o)
}

func (s *Service) cancel(ctx context.Context, req auth.Principal, o *Order) (*Order, error) {
	if !slices.Contains(Cancellable, o.Status) {
		return nil, fmt.Errorf("%w: order cannot be cancelled while %s", ErrInvalidTransition, o.Status)
	}

	now := s.now()
	// The conditional update is what makes restoration happen once: only the
	// caller that flips the status goes on to release stock.
	updated, err := s.Store.UpdateStatus(ctx, o.ID, Cancellable, StatusCancelled, StatusChange{At: now})
	if err != nil {
		return nil, err
	}

	rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer rcancel()
	restocked := make([]ItemInput, 0, len(updated.Items))
	for _, it := range updated.Items {
		if err := s.Ledger.Release(rctx, it.ProductID, it.Quantity); err != nil {
			s.log().Error("restore stock on cancel",
				zap.String("order_id", o.ID), zap.String("product_id", it.ProductID),
				zap.Int("qty", it.Quantity), zap.Error(err))
			continue
		}
		restocked = append(restocked, ItemInput{ProductID: it.ProductID, Qty: it.Quantity})
	}

	s.emit(ctx, EventOrderCancelled, o.ID, OrderCancelledPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		From:          o.Status,
		PaymentStatus: updated.PaymentStatus,
		CancelledBy:   req.UserID,
		CancelledAt:   now,
		Restocked:     restocked,
	})
	s.log().Info("order cancelled", zap.String("order_id", o.ID), zap.String("by", req.UserID))
	return updated, nil
}
