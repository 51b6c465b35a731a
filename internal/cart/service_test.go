package cart_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/ariefcatur/go-shop-orders/internal/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*cart.Service, *memstore.Products) {
	t.Helper()
	products := memstore.NewProducts()
	ctx := context.Background()
	for _, p := range []catalog.Product{
		{ID: "p1", SKU: "s1", Name: "Pen", Price: decimal.RequireFromString("1.25"), Stock: 10, IsActive: true},
		{ID: "p2", SKU: "s2", Name: "Pad", Price: decimal.RequireFromString("3.00"), Stock: 2, IsActive: true},
		{ID: "p3", SKU: "s3", Name: "Old", Price: decimal.RequireFromString("9.00"), Stock: 5, IsActive: false},
	} {
		require.NoError(t, products.Create(ctx, &p))
	}
	carts := memstore.NewCarts(products)
	return &cart.Service{Carts: carts, Wishlists: carts, Products: products}, products
}

func TestGet_EmptyCart(t *testing.T) {
	svc, _ := newService(t)
	c, err := svc.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, c.Items)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
}

func TestAddItem_SetsQuantityAndTotals(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, "u1", "p1", 4)
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	assert.True(t, c.Total.Equal(decimal.RequireFromString("8.00")), c.Total.String())
}

func TestAddItem_Rejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "", 1)
	assert.ErrorIs(t, err, cart.ErrValidation)
	_, err = svc.AddItem(ctx, "u1", "p1", 0)
	assert.ErrorIs(t, err, cart.ErrValidation)
	_, err = svc.AddItem(ctx, "u1", "ghost", 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = svc.AddItem(ctx, "u1", "p3", 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.AddItem(ctx, "u1", "p2", 3)
	var se *inventory.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Available)
}

func TestUpdateRemoveClear(t *testing.T) {
	svc, products := newService(t)
	ctx := context.Background()

	_, err := svc.UpdateItem(ctx, "u1", "p1", 1)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)

	_, err = svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	c, err := svc.UpdateItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Items[0].Quantity)

	// the cart never reserves stock
	p, _ := products.Get(ctx, "p1")
	assert.Equal(t, 10, p.Stock)

	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)
	c, err = svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)

	require.NoError(t, svc.Clear(ctx, "u1"))
	c, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestWishlist(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	w, err := svc.Wishlist(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, w.Items)

	_, err = svc.AddToWishlist(ctx, "u1", "ghost")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.AddToWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	w, err = svc.AddToWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Len(t, w.Items, 1)

	w, err = svc.RemoveFromWishlist(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Empty(t, w.Items)

	_, err = svc.AddToWishlist(ctx, "u1", "p2")
	require.NoError(t, err)
	require.NoError(t, svc.ClearWishlist(ctx, "u1"))
	w, err = svc.Wishlist(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, w.Items)
}
