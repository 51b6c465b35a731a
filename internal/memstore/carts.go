package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/cart"
)

type cartLine struct {
	productID string
	qty       int
}

type wishLine struct {
	productID string
	added     time.Time
}

// Carts holds carts and wishlists, joined with live products on read.
type Carts struct {
	mu       sync.Mutex
	carts    map[string][]cartLine
	updated  map[string]time.Time
	wishes   map[string][]wishLine
	products *Products
}

func NewCarts(products *Products) *Carts {
	return &Carts{
		carts:    map[string][]cartLine{},
		updated:  map[string]time.Time{},
		wishes:   map[string][]wishLine{},
		products: products,
	}
}

func (s *Carts) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	s.mu.Lock()
	lines := append([]cartLine(nil), s.carts[userID]...)
	updated := s.updated[userID]
	s.mu.Unlock()

	c := &cart.Cart{UserID: userID, Items: []cart.Item{}, UpdatedAt: updated}
	for _, l := range lines {
		p, err := s.products.Get(ctx, l.productID)
		if err != nil {
			continue
		}
		c.Items = append(c.Items, cart.Item{ProductID: p.ID, Quantity: l.qty, Name: p.Name, Price: p.Price, Stock: p.Stock})
	}
	return c, nil
}

func (s *Carts) SetItem(ctx context.Context, userID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].qty = qty
			s.updated[userID] = time.Now().UTC()
			return nil
		}
	}
	s.carts[userID] = append(lines, cartLine{productID: productID, qty: qty})
	s.updated[userID] = time.Now().UTC()
	return nil
}

func (s *Carts) RemoveItem(ctx context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[userID][:0:0]
	for _, l := range s.carts[userID] {
		if l.productID != productID {
			lines = append(lines, l)
		}
	}
	s.carts[userID] = lines
	s.updated[userID] = time.Now().UTC()
	return nil
}

func (s *Carts) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	s.updated[userID] = time.Now().UTC()
	return nil
}

func (s *Carts) GetWishlist(ctx context.Context, userID string) (*cart.Wishlist, error) {
	s.mu.Lock()
	lines := append([]wishLine(nil), s.wishes[userID]...)
	s.mu.Unlock()

	w := &cart.Wishlist{UserID: userID, Items: []cart.WishlistItem{}}
	for _, l := range lines {
		p, err := s.products.Get(ctx, l.productID)
		if err != nil {
			continue
		}
		w.Items = append(w.Items, cart.WishlistItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock, AddedAt: l.added})
	}
	return w, nil
}

func (s *Carts) AddWishlist(ctx context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.wishes[userID] {
		if l.productID == productID {
			return nil
		}
	}
	s.wishes[userID] = append(s.wishes[userID], wishLine{productID: productID, added: time.Now().UTC()})
	return nil
}

func (s *Carts) RemoveWishlist(ctx context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.wishes[userID][:0:0]
	for _, l := range s.wishes[userID] {
		if l.productID != productID {
			lines = append(lines, l)
		}
	}
	s.wishes[userID] = lines
	return nil
}

func (s *Carts) ClearWishlist(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wishes, userID)
	return nil
}
