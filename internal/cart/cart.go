// Package cart holds the shopping cart and wishlist. Prices shown here are
// live product prices; they are only frozen when an order is placed.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound = errors.New("item not found in cart")
	ErrValidation   = errors.New("validation failed")
)

type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
}

type Cart struct {
	UserID    string          `json:"user_id"`
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}

func (c *Cart) recompute() {
	if c.Items == nil {
		c.Items = []Item{}
	}
	t := decimal.Zero
	for _, it := range c.Items {
		t = t.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.Total = t
}

type WishlistItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	AddedAt   time.Time       `json:"added_at"`
}

type Wishlist struct {
	UserID string         `json:"user_id"`
	Items  []WishlistItem `json:"items"`
}

// Store keeps carts. Get joins live product data and skips products that no
// longer exist; an unknown user yields an empty cart.
type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	SetItem(ctx context.Context, userID, productID string, qty int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type WishlistStore interface {
	GetWishlist(ctx context.Context, userID string) (*Wishlist, error)
	// AddWishlist is a no-op for a product already on the list.
	AddWishlist(ctx context.Context, userID, productID string) error
	RemoveWishlist(ctx context.Context, userID, productID string) error
	ClearWishlist(ctx context.Context, userID string) error
}
