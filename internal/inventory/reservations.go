package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Reserved is one successful ledger reservation.
type Reserved struct {
	ProductID string
	Qty       int
	UnitPrice decimal.Decimal
}

// Reservations accumulates the reservations made for a single request so they
// can be replayed in reverse if a later step fails. Not safe for concurrent use.
type Reservations struct {
	ledger  Ledger
	held    []Reserved
	settled bool
}

func NewReservations(l Ledger) *Reservations {
	return &Reservations{ledger: l}
}

// Reserve reserves qty of productID and records it. A failed reservation is
// not recorded.
func (r *Reservations) Reserve(ctx context.Context, productID string, qty int) (Reserved, error) {
	if r.settled {
		return Reserved{}, errors.New("reservations already settled")
	}
	price, err := r.ledger.Reserve(ctx, productID, qty)
	if err != nil {
		return Reserved{}, err
	}
	res := Reserved{ProductID: productID, Qty: qty, UnitPrice: price}
	r.held = append(r.held, res)
	return res, nil
}

func (r *Reservations) Held() []Reserved {
	out := make([]Reserved, len(r.held))
	copy(out, r.held)
	return out
}

// Commit keeps the reservations; a later Rollback does nothing.
func (r *Reservations) Commit() { r.settled = true }

// Rollback releases every held reservation in reverse order, exactly once.
// It runs detached from ctx cancellation so an expired request still gives
// its stock back.
func (r *Reservations) Rollback(ctx context.Context) error {
	if r.settled {
		return nil
	}
	r.settled = true

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(r.held) - 1; i >= 0; i-- {
		h := r.held[i]
		if err := r.ledger.Release(ctx, h.ProductID, h.Qty); err != nil {
			errs = append(errs, fmt.Errorf("release %s x%d: %w", h.ProductID, h.Qty, err))
		}
	}
	r.held = nil
	return errors.Join(errs...)
}
