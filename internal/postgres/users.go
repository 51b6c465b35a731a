package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/users"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Users struct{ DB *pgxpool.Pool }

func (s *Users) Get(ctx context.Context, id string) (*users.Profile, error) {
	var (
		p    users.Profile
		role string
		addr []byte
	)
	err := s.DB.QueryRow(ctx, `SELECT id, email, first_name, last_name, phone, role, address, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Phone, &role, &addr, &p.CreatedAt, &p.UpdatedAt)
	if noRows(err) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	p.Role, _ = auth.ParseRole(role)
	if len(addr) > 0 {
		p.Address = &users.Address{}
		if err := json.Unmarshal(addr, p.Address); err != nil {
			return nil, fmt.Errorf("decode address: %w", err)
		}
	}
	return &p, nil
}

func (s *Users) Save(ctx context.Context, p *users.Profile) error {
	var addr []byte
	if p.Address != nil {
		var err error
		if addr, err = json.Marshal(p.Address); err != nil {
			return err
		}
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, phone, role, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name, phone = EXCLUDED.phone, role = EXCLUDED.role,
			address = EXCLUDED.address, updated_at = EXCLUDED.updated_at`,
		p.ID, p.Email, p.FirstName, p.LastName, p.Phone, string(p.Role), addr, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}
