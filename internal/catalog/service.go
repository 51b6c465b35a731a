package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	Store  Store
	Ledger inventory.Ledger
	Log    *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrValidation, msg) }

func check(p *Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return invalid("name is required")
	case strings.TrimSpace(p.Description) == "":
		return invalid("description is required")
	case strings.TrimSpace(p.Category) == "":
		return invalid("category is required")
	case p.Price.IsNegative():
		return invalid("price must not be negative")
	case p.Stock < 0:
		return invalid("stock must not be negative")
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	f = f.Normalize()
	items, total, err := s.Store.List(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return NewPage(items, total, f), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.Store.Get(ctx, id)
}

// Create lists a new product owned by the calling vendor (or admin).
func (s *Service) Create(ctx context.Context, by auth.Principal, p Product) (*Product, error) {
	if !by.CanFulfil() {
		return nil, fmt.Errorf("%w: vendor or admin role required", ErrForbidden)
	}
	if strings.TrimSpace(p.SKU) == "" {
		return nil, invalid("sku is required")
	}
	if err := check(&p); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.VendorID = by.UserID
	p.IsActive = true
	p.AverageRating = 0
	p.Ratings = nil
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.Store.Create(ctx, &p); err != nil {
		return nil, err
	}
	s.log().Info("product created", zap.String("product_id", p.ID), zap.String("vendor_id", p.VendorID))
	return &p, nil
}

func (s *Service) owned(ctx context.Context, by auth.Principal, id string) (*Product, error) {
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !by.Owns(p.VendorID) {
		return nil, fmt.Errorf("%w: not authorized to modify this product", ErrForbidden)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, by auth.Principal, id string, c Changes) (*Product, error) {
	p, err := s.owned(ctx, by, id)
	if err != nil {
		return nil, err
	}
	c.Apply(p)
	if err := check(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.Store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, by auth.Principal, id string) error {
	if _, err := s.owned(ctx, by, id); err != nil {
		return err
	}
	return s.Store.Delete(ctx, id)
}

// Restock adds qty units through the ledger.
func (s *Service) Restock(ctx context.Context, by auth.Principal, id string, qty int) (*Product, error) {
	if qty < 1 {
		return nil, invalid("quantity must be at least 1")
	}
	if _, err := s.owned(ctx, by, id); err != nil {
		return nil, err
	}
	if err := s.Ledger.Release(ctx, id, qty); err != nil {
		return nil, err
	}
	s.log().Info("product restocked", zap.String("product_id", id), zap.Int("qty", qty))
	return s.Store.Get(ctx, id)
}

func (s *Service) Rate(ctx context.Context, by auth.Principal, id string, rating int, review string) (*Product, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating must be between 1 and 5")
	}
	if strings.TrimSpace(review) == "" {
		return nil, invalid("review is required")
	}
	return s.Store.UpsertRating(ctx, id, Rating{UserID: by.UserID, Rating: rating, Review: review, Date: time.Now().UTC()})
}

// Average of a rating set; zero when empty.
func Average(rs []Rating) float64 {
	if len(rs) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	return float64(sum) / float64(len(rs))
}
