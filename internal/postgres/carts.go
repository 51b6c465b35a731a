package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Carts stores carts and wishlists. Rows reference products with ON DELETE
// CASCADE, so a deleted product drops out of every cart.
type Carts struct{ DB *pgxpool.Pool }

func (s *Carts) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT c.product_id, c.qty, c.updated_at, p.name, p.price::text, p.stock
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1 ORDER BY c.updated_at, c.product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	defer rows.Close()

	c := &cart.Cart{UserID: userID, Items: []cart.Item{}}
	for rows.Next() {
		var (
			it    cart.Item
			at    time.Time
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &at, &it.Name, &price, &it.Stock); err != nil {
			return nil, err
		}
		if it.Price, err = parseDecimal(price); err != nil {
			return nil, err
		}
		if at.After(c.UpdatedAt) {
			c.UpdatedAt = at
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

func (s *Carts) SetItem(ctx context.Context, userID, productID string, qty int) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO cart_items (user_id, product_id, qty, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, product_id) DO UPDATE SET qty = EXCLUDED.qty, updated_at = NOW()`,
		userID, productID, qty)
	if err != nil {
		return fmt.Errorf("set cart item: %w", err)
	}
	return nil
}

func (s *Carts) RemoveItem(ctx context.Context, userID, productID string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (s *Carts) Clear(ctx context.Context, userID string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Carts) GetWishlist(ctx context.Context, userID string) (*cart.Wishlist, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT w.product_id, w.added_at, p.name, p.price::text, p.stock
		FROM wishlist_items w JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1 ORDER BY w.added_at, w.product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	defer rows.Close()

	w := &cart.Wishlist{UserID: userID, Items: []cart.WishlistItem{}}
	for rows.Next() {
		var (
			it    cart.WishlistItem
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.AddedAt, &it.Name, &price, &it.Stock); err != nil {
			return nil, err
		}
		if it.Price, err = parseDecimal(price); err != nil {
			return nil, err
		}
		w.Items = append(w.Items, it)
	}
	return w, rows.Err()
}

func (s *Carts) AddWishlist(ctx context.Context, userID, productID string) error {
	_, err := s.DB.Exec(ctx, `INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`, userID, productID)
	if err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}
	return nil
}

func (s *Carts) RemoveWishlist(ctx context.Context, userID, productID string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	return nil
}

func (s *Carts) ClearWishlist(ctx context.Context, userID string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear wishlist: %w", err)
	}
	return nil
}
