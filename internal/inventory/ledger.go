// Package inventory holds the stock ledger contract shared by every store and
// the compensating reservation list used while an order is being placed.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockError carries the numbers behind an ErrInsufficientStock rejection.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// Ledger mutates product stock. Implementations must apply Reserve as a single
// compare-and-decrement so concurrent reservations never oversell.
type Ledger interface {
	// Reserve decrements stock by qty and returns the unit price read in the
	// same atomic step. Fails with ErrProductNotFound or a *StockError.
	Reserve(ctx context.Context, productID string, qty int) (decimal.Decimal, error)
	// Release adds qty back. A product that no longer exists is a no-op.
	Release(ctx context.Context, productID string, qty int) error
}
