package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = inventory.ErrProductNotFound
	ErrDuplicateSKU = errors.New("sku already exists")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
)

type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Images        []string        `json:"images"`
	Tags          []string        `json:"tags"`
	VendorID      string          `json:"vendor_id"`
	Stock         int             `json:"stock"`
	IsActive      bool            `json:"is_active"`
	AverageRating float64         `json:"average_rating"`
	Ratings       []Rating        `json:"ratings,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Rating struct {
	UserID string    `json:"user_id"`
	Rating int       `json:"rating"`
	Review string    `json:"review"`
	Date   time.Time `json:"date"`
}

// Changes is a partial product update. Stock is not here: it only moves
// through the ledger.
type Changes struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Images      []string
	Tags        []string
	IsActive    *bool
}

func (c Changes) Apply(p *Product) {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Category != nil {
		p.Category = *c.Category
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.Images != nil {
		p.Images = c.Images
	}
	if c.Tags != nil {
		p.Tags = c.Tags
	}
	if c.IsActive != nil {
		p.IsActive = *c.IsActive
	}
}

type Store interface {
	List(ctx context.Context, f Filter) ([]Product, int, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	// UpsertRating replaces the user's earlier rating if any and recomputes
	// the average.
	UpsertRating(ctx context.Context, productID string, r Rating) (*Product, error)
}
