package catalog_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vendor = auth.Principal{UserID: "v1", Role: auth.RoleVendor}
	rival  = auth.Principal{UserID: "v2", Role: auth.RoleVendor}
	admin  = auth.Principal{UserID: "root", Role: auth.RoleAdmin}
	buyer  = auth.Principal{UserID: "u1", Role: auth.RoleUser}
)

func newService() *catalog.Service {
	store := memstore.NewProducts()
	return &catalog.Service{Store: store, Ledger: store}
}

func mug() catalog.Product {
	return catalog.Product{SKU: "MUG-1", Name: "Mug", Description: "Stoneware", Category: "kitchen",
		Price: decimal.RequireFromString("7.50"), Stock: 3}
}

func TestCreate_OwnedByCaller(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, buyer, mug())
	assert.ErrorIs(t, err, catalog.ErrForbidden)

	p, err := svc.Create(ctx, vendor, mug())
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "v1", p.VendorID)
	assert.True(t, p.IsActive)

	_, err = svc.Create(ctx, vendor, mug())
	assert.ErrorIs(t, err, catalog.ErrDuplicateSKU)
}

func TestCreate_Validation(t *testing.T) {
	svc := newService()
	cases := map[string]func(p *catalog.Product){
		"sku":         func(p *catalog.Product) { p.SKU = " " },
		"name":        func(p *catalog.Product) { p.Name = "" },
		"description": func(p *catalog.Product) { p.Description = "" },
		"category":    func(p *catalog.Product) { p.Category = "" },
		"price":       func(p *catalog.Product) { p.Price = decimal.NewFromInt(-1) },
		"stock":       func(p *catalog.Product) { p.Stock = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := mug()
			mutate(&p)
			_, err := svc.Create(context.Background(), vendor, p)
			assert.ErrorIs(t, err, catalog.ErrValidation)
		})
	}
}

func TestUpdate_OwnerOrAdminAndStockUntouched(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	p, err := svc.Create(ctx, vendor, mug())
	require.NoError(t, err)

	name := "Big Mug"
	_, err = svc.Update(ctx, rival, p.ID, catalog.Changes{Name: &name})
	assert.ErrorIs(t, err, catalog.ErrForbidden)

	price := decimal.RequireFromString("9.00")
	got, err := svc.Update(ctx, admin, p.ID, catalog.Changes{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", got.Name)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, 3, got.Stock)

	empty := ""
	_, err = svc.Update(ctx, vendor, p.ID, catalog.Changes{Category: &empty})
	assert.ErrorIs(t, err, catalog.ErrValidation)
}

func TestRestockAndDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	p, err := svc.Create(ctx, vendor, mug())
	require.NoError(t, err)

	_, err = svc.Restock(ctx, vendor, p.ID, 0)
	assert.ErrorIs(t, err, catalog.ErrValidation)
	got, err := svc.Restock(ctx, vendor, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	assert.ErrorIs(t, svc.Delete(ctx, rival, p.ID), catalog.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, vendor, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestRate_UpsertsPerUser(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	p, err := svc.Create(ctx, vendor, mug())
	require.NoError(t, err)

	_, err = svc.Rate(ctx, buyer, p.ID, 0, "meh")
	assert.ErrorIs(t, err, catalog.ErrValidation)
	_, err = svc.Rate(ctx, buyer, p.ID, 3, " ")
	assert.ErrorIs(t, err, catalog.ErrValidation)

	_, err = svc.Rate(ctx, buyer, p.ID, 2, "chipped")
	require.NoError(t, err)
	_, err = svc.Rate(ctx, admin, p.ID, 5, "great")
	require.NoError(t, err)
	got, err := svc.Rate(ctx, buyer, p.ID, 4, "grew on me")
	require.NoError(t, err)

	assert.Len(t, got.Ratings, 2)
	assert.InDelta(t, 4.5, got.AverageRating, 1e-9)
}

func TestList_Normalizes(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	for _, sku := range []string{"A", "B", "C"} {
		p := mug()
		p.SKU = sku
		_, err := svc.Create(ctx, vendor, p)
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, catalog.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Items, 2)
}

func TestAverage(t *testing.T) {
	assert.Zero(t, catalog.Average(nil))
	assert.InDelta(t, 2.0, catalog.Average([]catalog.Rating{{Rating: 1}, {Rating: 3}}), 1e-9)
}
