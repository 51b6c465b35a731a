package cart

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
)

// Products is the catalog view the cart needs.
type Products interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

type Service struct {
	Carts     Store
	Wishlists WishlistStore
	Products  Products
}

func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.recompute()
	return c, nil
}

// available loads an active product holding at least qty units. Stock is not
// reserved here.
func (s *Service) available(ctx context.Context, productID string, qty int) error {
	p, err := s.Products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return catalog.ErrNotFound
	}
	if p.Stock < qty {
		return &inventory.StockError{ProductID: productID, Requested: qty, Available: p.Stock}
	}
	return nil
}

// AddItem puts productID in the cart, replacing the quantity if it is already
// there.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product is required", ErrValidation)
	}
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	if err := s.available(ctx, productID, qty); err != nil {
		return nil, err
	}
	if err := s.Carts.SetItem(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) UpdateItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	c, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !c.has(productID) {
		return nil, ErrItemNotFound
	}
	if err := s.available(ctx, productID, qty); err != nil {
		return nil, err
	}
	if err := s.Carts.SetItem(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if err := s.Carts.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.Carts.Clear(ctx, userID)
}

func (c *Cart) has(productID string) bool {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

func (s *Service) Wishlist(ctx context.Context, userID string) (*Wishlist, error) {
	w, err := s.Wishlists.GetWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.Items == nil {
		w.Items = []WishlistItem{}
	}
	return w, nil
}

func (s *Service) AddToWishlist(ctx context.Context, userID, productID string) (*Wishlist, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product is required", ErrValidation)
	}
	if _, err := s.Products.Get(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.Wishlists.AddWishlist(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Wishlist(ctx, userID)
}

func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) (*Wishlist, error) {
	if err := s.Wishlists.RemoveWishlist(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Wishlist(ctx, userID)
}

func (s *Service) ClearWishlist(ctx context.Context, userID string) error {
	return s.Wishlists.ClearWishlist(ctx, userID)
}
