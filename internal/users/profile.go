// Package users keeps the local profile of an externally authenticated user.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrValidation = errors.New("validation failed")
)

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      auth.Role `json:"role"`
	Address   *Address  `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store interface {
	Get(ctx context.Context, id string) (*Profile, error)
	// Save inserts or replaces the profile.
	Save(ctx context.Context, p *Profile) error
}

type Update struct {
	FirstName string
	LastName  string
	Phone     string
	Address   *Address // nil keeps the current one
}

// UpdateProfile writes the caller's profile, creating it on first use.
func UpdateProfile(ctx context.Context, s Store, by auth.Principal, u Update) (*Profile, error) {
	u.FirstName, u.LastName, u.Phone = strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName), strings.TrimSpace(u.Phone)
	switch {
	case u.FirstName == "":
		return nil, fmt.Errorf("%w: first name is required", ErrValidation)
	case u.LastName == "":
		return nil, fmt.Errorf("%w: last name is required", ErrValidation)
	case u.Phone == "":
		return nil, fmt.Errorf("%w: phone number is required", ErrValidation)
	}

	now := time.Now().UTC()
	p, err := s.Get(ctx, by.UserID)
	if errors.Is(err, ErrNotFound) {
		p = &Profile{ID: by.UserID, Role: by.Role, CreatedAt: now}
	} else if err != nil {
		return nil, err
	}
	p.FirstName, p.LastName, p.Phone = u.FirstName, u.LastName, u.Phone
	if u.Address != nil {
		p.Address = u.Address
	}
	p.UpdatedAt = now
	if err := s.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
