package users_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/memstore"
	"github.com/ariefcatur/go-shop-orders/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile_CreatesThenUpdates(t *testing.T) {
	store := memstore.NewUsers()
	ctx := context.Background()
	me := auth.Principal{UserID: "u1", Role: auth.RoleVendor}

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, users.ErrNotFound)

	home := &users.Address{Street: "1 Main", City: "Springfield"}
	p, err := users.UpdateProfile(ctx, store, me, users.Update{FirstName: " Ada ", LastName: "Lovelace", Phone: "555", Address: home})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, auth.RoleVendor, p.Role)
	created := p.CreatedAt

	p, err = users.UpdateProfile(ctx, store, me, users.Update{FirstName: "Ada", LastName: "King", Phone: "556"})
	require.NoError(t, err)
	assert.Equal(t, "King", p.LastName)
	assert.Equal(t, home, p.Address, "nil address keeps the stored one")
	assert.Equal(t, created, p.CreatedAt)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "556", got.Phone)
}

func TestUpdateProfile_RequiresFields(t *testing.T) {
	store := memstore.NewUsers()
	me := auth.Principal{UserID: "u1", Role: auth.RoleUser}
	for _, u := range []users.Update{
		{LastName: "L", Phone: "1"},
		{FirstName: "F", Phone: "1"},
		{FirstName: "F", LastName: "L", Phone: "  "},
	} {
		_, err := users.UpdateProfile(context.Background(), store, me, u)
		assert.ErrorIs(t, err, users.ErrValidation)
	}
}
