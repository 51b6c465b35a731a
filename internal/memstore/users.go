package memstore

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-shop-orders/internal/users"
)

type Users struct {
	mu   sync.Mutex
	byID map[string]users.Profile
}

func NewUsers() *Users {
	return &Users{byID: map[string]users.Profile{}}
}

func (s *Users) Get(ctx context.Context, id string) (*users.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	if p.Address != nil {
		a := *p.Address
		p.Address = &a
	}
	return &p, nil
}

func (s *Users) Save(ctx context.Context, p *users.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	if p.Address != nil {
		a := *p.Address
		c.Address = &a
	}
	s.byID[p.ID] = c
	return nil
}
