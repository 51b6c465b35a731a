package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/ariefcatur/go-shop-orders/internal/orders"
)

type Orders struct {
	mu       sync.Mutex
	byID     map[string]*orders.Order
	products *Products
}

// NewOrders needs products only for vendor listings.
func NewOrders(products *Products) *Orders {
	return &Orders{byID: map[string]*orders.Order{}, products: products}
}

func cloneOrder(o *orders.Order) *orders.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	if o.EstimatedAt != nil {
		t := *o.EstimatedAt
		c.EstimatedAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	if o.Refund != nil {
		r := *o.Refund
		c.Refund = &r
	}
	return &c
}

func (s *Orders) Insert(ctx context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[o.ID]; ok {
		return orders.ErrDuplicateOrder
	}
	if o.ExternalID != "" {
		for _, x := range s.byID {
			if x.UserID == o.UserID && x.ExternalID == o.ExternalID {
				return orders.ErrDuplicateOrder
			}
		}
	}
	s.byID[o.ID] = cloneOrder(o)
	return nil
}

func (s *Orders) Get(ctx context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *Orders) GetByExternalID(ctx context.Context, userID, externalID string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.byID {
		if o.UserID == userID && o.ExternalID == externalID {
			return cloneOrder(o), nil
		}
	}
	return nil, orders.ErrOrderNotFound
}

func (s *Orders) collect(keep func(*orders.Order) bool) []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []orders.Order{}
	for _, o := range s.byID {
		if keep(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].CreatedAt.Before(out[i].CreatedAt) })
	return out
}

func (s *Orders) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return s.collect(func(o *orders.Order) bool { return o.UserID == userID }), nil
}

func (s *Orders) ListByVendor(ctx context.Context, vendorID string) ([]orders.Order, error) {
	owned := s.products.vendorOwns(vendorID)
	return s.collect(func(o *orders.Order) bool {
		return slices.ContainsFunc(o.Items, func(it orders.LineItem) bool { return owned[it.ProductID] })
	}), nil
}

func (s *Orders) UpdateStatus(ctx context.Context, id string, from []orders.Status, to orders.Status, ch orders.StatusChange) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	if !slices.Contains(from, o.Status) {
		return nil, orders.ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = ch.At
	if ch.TrackingNumber != nil {
		o.TrackingNumber = *ch.TrackingNumber
	}
	if ch.EstimatedAt != nil {
		t := *ch.EstimatedAt
		o.EstimatedAt = &t
	}
	if ch.DeliveredAt != nil {
		t := *ch.DeliveredAt
		o.DeliveredAt = &t
	}
	return cloneOrder(o), nil
}
