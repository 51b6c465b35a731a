package postgres

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Ledger keeps stock in products.stock. Reserve is a single conditional
// UPDATE, so two callers can never both take the last units.
type Ledger struct{ DB *pgxpool.Pool }

func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) (decimal.Decimal, error) {
	var price string
	err := l.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND is_active AND stock >= $2
		RETURNING price::text`, productID, qty).Scan(&price)
	if err == nil {
		return parseDecimal(price)
	}
	if !noRows(err) {
		return decimal.Zero, fmt.Errorf("reserve %s: %w", productID, err)
	}

	// Nothing updated: find out why.
	var (
		stock  int
		active bool
	)
	err = l.DB.QueryRow(ctx, `SELECT stock, is_active FROM products WHERE id = $1`, productID).Scan(&stock, &active)
	switch {
	case noRows(err), err == nil && !active:
		return decimal.Zero, inventory.ErrProductNotFound
	case err != nil:
		return decimal.Zero, fmt.Errorf("reserve %s: %w", productID, err)
	}
	return decimal.Zero, &inventory.StockError{ProductID: productID, Requested: qty, Available: stock}
}

// Release adds qty back. A product deleted since the reservation is
// skipped.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	_, err := l.DB.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	return nil
}
