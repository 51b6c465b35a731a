// Package auth carries the caller identity resolved by the edge. Token
// issuance and verification live outside this service.
package auth

import (
	"context"
	"strings"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleVendor, RoleAdmin:
		return r, true
	case "":
		return RoleUser, true
	}
	return "", false
}

type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanFulfil reports whether the caller may move orders through fulfilment.
func (p Principal) CanFulfil() bool { return p.Role == RoleAdmin || p.Role == RoleVendor }

// Owns reports whether the caller is ownerID or an admin.
func (p Principal) Owns(ownerID string) bool { return p.UserID == ownerID || p.IsAdmin() }

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && p.UserID != ""
}
