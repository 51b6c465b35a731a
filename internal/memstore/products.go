// Package memstore keeps every store in process memory. It backs
// STORAGE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/shopspring/decimal"
)

// Products is the catalog and the inventory ledger. One mutex serializes
// every stock mutation, which makes Reserve a compare-and-decrement.
type Products struct {
	mu   sync.Mutex
	byID map[string]*catalog.Product
}

func NewProducts() *Products {
	return &Products{byID: map[string]*catalog.Product{}}
}

func cloneProduct(p *catalog.Product) *catalog.Product {
	c := *p
	c.Images = slices.Clone(p.Images)
	c.Tags = slices.Clone(p.Tags)
	c.Ratings = slices.Clone(p.Ratings)
	return &c
}

func (s *Products) Reserve(ctx context.Context, productID string, qty int) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[productID]
	if !ok || !p.IsActive {
		return decimal.Zero, inventory.ErrProductNotFound
	}
	if p.Stock < qty {
		return decimal.Zero, &inventory.StockError{ProductID: productID, Requested: qty, Available: p.Stock}
	}
	p.Stock -= qty
	return p.Price, nil
}

func (s *Products) Release(ctx context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byID[productID]; ok {
		p.Stock += qty
	}
	return nil
}

func (s *Products) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(f.Search)
	var out []catalog.Product
	for _, p := range s.byID {
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.VendorID != "" && p.VendorID != f.VendorID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		c := cloneProduct(p)
		c.Ratings = nil
		out = append(out, *c)
	}

	field, desc := f.SortKey()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "price":
			return a.Price.LessThan(b.Price)
		case "name":
			return a.Name < b.Name
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})

	total := len(out)
	from := min(f.Offset(), total)
	to := total
	if f.Limit > 0 {
		to = min(from+f.Limit, total)
	}
	return out[from:to], total, nil
}

func (s *Products) Get(ctx context.Context, id string) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (s *Products) Create(ctx context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.byID {
		if x.SKU == p.SKU {
			return catalog.ErrDuplicateSKU
		}
	}
	s.byID[p.ID] = cloneProduct(p)
	return nil
}

// Update writes everything except stock and ratings.
func (s *Products) Update(ctx context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[p.ID]
	if !ok {
		return catalog.ErrNotFound
	}
	next := cloneProduct(p)
	next.Stock = cur.Stock
	next.Ratings = cur.Ratings
	next.AverageRating = cur.AverageRating
	s.byID[p.ID] = next
	return nil
}

func (s *Products) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *Products) UpsertRating(ctx context.Context, productID string, r catalog.Rating) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	i := slices.IndexFunc(p.Ratings, func(x catalog.Rating) bool { return x.UserID == r.UserID })
	if i >= 0 {
		p.Ratings[i] = r
	} else {
		p.Ratings = append(p.Ratings, r)
	}
	p.AverageRating = catalog.Average(p.Ratings)
	return cloneProduct(p), nil
}

func (s *Products) vendorOwns(vendorID string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]bool{}
	for id, p := range s.byID {
		if p.VendorID == vendorID {
			out[id] = true
		}
	}
	return out
}
