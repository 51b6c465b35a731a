package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/ariefcatur/go-shop-orders/internal/memstore"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, md map[string]string) (payment.Intent, error) {
	args := m.Called(ctx, amount, currency, md)
	return args.Get(0).(payment.Intent), args.Error(1)
}

type mockSink struct{ mock.Mock }

func (m *mockSink) Emit(ctx context.Context, key []byte, eventType string, value []byte) error {
	return m.Called(ctx, key, eventType, value).Error(0)
}

type fixture struct {
	svc      *orders.Service
	products *memstore.Products
	store    *memstore.Orders
	gateway  *mockGateway
	sink     *mockSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	products := memstore.NewProducts()
	store := memstore.NewOrders(products)
	gw := &mockGateway{}
	sink := &mockSink{}
	sink.On("Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	coupons, err := orders.ParseCoupons("SAVE10:10%,FIVE:5.00")
	require.NoError(t, err)
	return &fixture{
		svc: &orders.Service{
			Store:          store,
			Ledger:         products,
			Gateway:        gw,
			Coupons:        coupons,
			Events:         sink,
			Currency:       "USD",
			GatewayTimeout: time.Second,
			Producer:       "test",
		},
		products: products,
		store:    store,
		gateway:  gw,
		sink:     sink,
	}
}

func (f *fixture) addProduct(t *testing.T, id, price string, stock int) {
	t.Helper()
	require.NoError(t, f.products.Create(context.Background(), &catalog.Product{
		ID: id, SKU: "sku-" + id, Name: id, Price: decimal.RequireFromString(price),
		Stock: stock, VendorID: "vendor-1", IsActive: true,
	}))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

var addr = orders.Address{Street: "1 Main St", City: "Springfield", Country: "US", ZipCode: "12345"}

func input(items ...orders.ItemInput) orders.CreateOrderInput {
	return orders.CreateOrderInput{
		UserID:          "user-1",
		Items:           items,
		ShippingAddress: addr,
		PaymentMethod:   orders.MethodCard,
	}
}

func TestCreateOrder_PricesAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 3)
	f.addProduct(t, "b", "4.00", 10)

	placed, err := f.svc.CreateOrder(context.Background(), input(
		orders.ItemInput{ProductID: "a", Qty: 2},
		orders.ItemInput{ProductID: "b", Qty: 3},
	))
	require.NoError(t, err)

	o := placed.Order
	assert.True(t, o.Totals.GrandTotal.Equal(decimal.RequireFromString("32.00")), o.Totals.GrandTotal.String())
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, orders.PaymentPending, o.PaymentStatus)
	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, 1, f.stock(t, "a"))
	assert.Equal(t, 7, f.stock(t, "b"))

	stored, err := f.store.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.ID)
	f.gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.sink.AssertCalled(t, "Emit", mock.Anything, []byte(o.ID), orders.EventOrderCreated, mock.Anything)
}

func TestCreateOrder_MissingProductReleasesEarlierLines(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)

	_, err := f.svc.CreateOrder(context.Background(), input(
		orders.ItemInput{ProductID: "a", Qty: 2},
		orders.ItemInput{ProductID: "ghost", Qty: 1},
	))
	require.ErrorIs(t, err, inventory.ErrProductNotFound)
	assert.Contains(t, err.Error(), "items[1] ghost")
	assert.Equal(t, 5, f.stock(t, "a"))

	mine, err := f.store.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, mine)
	f.sink.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_InsufficientStockReportsAvailable(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "1.00", 2)
	f.addProduct(t, "b", "1.00", 9)

	_, err := f.svc.CreateOrder(context.Background(), input(
		orders.ItemInput{ProductID: "b", Qty: 4},
		orders.ItemInput{ProductID: "a", Qty: 3},
	))
	var se *inventory.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "a", se.ProductID)
	assert.Equal(t, 3, se.Requested)
	assert.Equal(t, 2, se.Available)
	assert.Equal(t, 9, f.stock(t, "b"))
	assert.Equal(t, 2, f.stock(t, "a"))
}

func TestCreateOrder_ValidationHappensBeforeReservation(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "1.00", 5)

	cases := map[string]func(*orders.CreateOrderInput){
		"no items":       func(in *orders.CreateOrderInput) { in.Items = nil },
		"zero quantity":  func(in *orders.CreateOrderInput) { in.Items[0].Qty = 0 },
		"bad method":     func(in *orders.CreateOrderInput) { in.PaymentMethod = "cash" },
		"no address":     func(in *orders.CreateOrderInput) { in.ShippingAddress = orders.Address{} },
		"unknown coupon": func(in *orders.CreateOrderInput) { in.CouponCode = "NOPE" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := input(orders.ItemInput{ProductID: "a", Qty: 1})
			mutate(&in)
			_, err := f.svc.CreateOrder(context.Background(), in)
			assert.ErrorIs(t, err, orders.ErrValidation)
			assert.Equal(t, 5, f.stock(t, "a"))
		})
	}
	_, err := f.svc.CreateOrder(context.Background(), orders.CreateOrderInput{UserID: "u", PaymentMethod: orders.MethodCard, ShippingAddress: addr})
	assert.ErrorIs(t, err, orders.ErrEmptyOrder)
}

func TestCreateOrder_CouponAndPolicies(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "50.00", 5)
	f.svc.Pricing = orders.Pricing{
		Shipping: orders.FlatShipping(decimal.RequireFromString("4.99")),
		Tax:      orders.FlatTax(decimal.RequireFromString("0.1")),
	}

	in := input(orders.ItemInput{ProductID: "a", Qty: 2})
	in.CouponCode = "save10"
	placed, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	tt := placed.Order.Totals
	assert.Equal(t, "100", tt.Subtotal.String())
	assert.Equal(t, "10", tt.Discount.String())
	assert.Equal(t, "9", tt.Tax.String())
	assert.Equal(t, "103.99", tt.GrandTotal.String())
}

func TestCreateOrder_ConcurrentBuyersNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)

	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(context.Background(), input(orders.ItemInput{ProductID: "a", Qty: 3}))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, inventory.ErrInsufficientStock):
				short.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), short.Load())
	assert.Equal(t, 2, f.stock(t, "a"))
}

func TestCreateOrder_GatewayFailureReleasesStock(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	f.gateway.On("CreateIntent", mock.Anything, mock.Anything, "USD", mock.Anything).
		Return(payment.Intent{}, errors.New("card network down")).Once()

	in := input(orders.ItemInput{ProductID: "a", Qty: 2})
	in.PaymentMethod = orders.MethodStripe
	_, err := f.svc.CreateOrder(context.Background(), in)
	require.ErrorIs(t, err, payment.ErrGateway)
	assert.Equal(t, 5, f.stock(t, "a"))

	mine, _ := f.store.ListByUser(context.Background(), "user-1")
	assert.Empty(t, mine)
	f.gateway.AssertExpectations(t)
}

func TestCreateOrder_GatewayIntentStoredAndSecretReturned(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "12.50", 5)
	f.gateway.On("CreateIntent", mock.Anything, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString("25"))
	}), "USD", mock.MatchedBy(func(md map[string]string) bool {
		return md["user_id"] == "user-1" && md["order_id"] != ""
	})).Return(payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil).Once()

	in := input(orders.ItemInput{ProductID: "a", Qty: 2})
	in.PaymentMethod = orders.MethodStripe
	placed, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", placed.Order.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", placed.ClientSecret)
	f.gateway.AssertExpectations(t)
}

func TestCreateOrder_IdempotencyKeyReplaysExisting(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)

	in := input(orders.ItemInput{ProductID: "a", Qty: 2})
	in.ExternalID = "key-1"
	first, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, first.Existing)

	again, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, again.Existing)
	assert.Equal(t, first.Order.ID, again.Order.ID)
	assert.Equal(t, 3, f.stock(t, "a"))
}

func TestCreateOrder_EmitFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	sink := &mockSink{}
	sink.On("Emit", mock.Anything, mock.Anything, orders.EventOrderCreated, mock.Anything).Return(errors.New("broker down")).Once()
	f.svc.Events = sink

	_, err := f.svc.CreateOrder(context.Background(), input(orders.ItemInput{ProductID: "a", Qty: 1}))
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, "a"))
	sink.AssertExpectations(t)
}

func TestCreateOrder_EnvelopeShape(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	var raw []byte
	sink := &mockSink{}
	sink.On("Emit", mock.Anything, mock.Anything, orders.EventOrderCreated, mock.Anything).
		Run(func(args mock.Arguments) { raw = args.Get(3).([]byte) }).Return(nil).Once()
	f.svc.Events = sink

	ctx := orders.WithTraceID(context.Background(), "req-42")
	placed, err := f.svc.CreateOrder(ctx, input(orders.ItemInput{ProductID: "a", Qty: 1}))
	require.NoError(t, err)

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, orders.EventOrderCreated, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "req-42", env.TraceID)
	assert.Equal(t, placed.Order.ID, env.CorrelationID)

	var p orders.OrderCreatedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(10)))
}

func admin() auth.Principal  { return auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin} }
func owner() auth.Principal  { return auth.Principal{UserID: "user-1", Role: auth.RoleUser} }
func vendor() auth.Principal { return auth.Principal{UserID: "vendor-1", Role: auth.RoleVendor} }

func placeOne(t *testing.T, f *fixture, qty int) *orders.Order {
	t.Helper()
	placed, err := f.svc.CreateOrder(context.Background(), input(orders.ItemInput{ProductID: "a", Qty: qty}))
	require.NoError(t, err)
	return placed.Order
}

func TestCancel_RestoresStockOnce(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	o := placeOne(t, f, 2)
	require.Equal(t, 3, f.stock(t, "a"))

	got, err := f.svc.Cancel(context.Background(), owner(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	assert.Equal(t, 5, f.stock(t, "a"))

	_, err = f.svc.Cancel(context.Background(), owner(), o.ID)
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)
	assert.Equal(t, 5, f.stock(t, "a"))
}

func TestCancel_ConcurrentCallersRestoreOnce(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	o := placeOne(t, f, 2)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Cancel(context.Background(), admin(), o.ID); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 5, f.stock(t, "a"))
}

func TestCancel_Authorization(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	o := placeOne(t, f, 1)

	_, err := f.svc.Cancel(context.Background(), auth.Principal{UserID: "stranger", Role: auth.RoleUser}, o.ID)
	assert.ErrorIs(t, err, orders.ErrForbidden)
	_, err = f.svc.Cancel(context.Background(), owner(), "missing")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestCancel_NotAllowedAfterShipping(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	o := placeOne(t, f, 1)

	_, err := f.svc.UpdateStatus(context.Background(), vendor(), o.ID, orders.StatusShipped, orders.StatusOptions{})
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), owner(), o.ID)
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)
	assert.Equal(t, 4, f.stock(t, "a"))
}

func TestUpdateStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	o := placeOne(t, f, 1)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, owner(), o.ID, orders.StatusProcessing, orders.StatusOptions{})
	assert.ErrorIs(t, err, orders.ErrForbidden)

	track := "TRK-1"
	eta := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	got, err := f.svc.UpdateStatus(ctx, admin(), o.ID, orders.StatusShipped, orders.StatusOptions{TrackingNumber: &track, EstimatedAt: &eta})
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", got.TrackingNumber)
	require.NotNil(t, got.EstimatedAt)

	_, err = f.svc.UpdateStatus(ctx, admin(), o.ID, orders.StatusProcessing, orders.StatusOptions{})
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)

	got, err = f.svc.UpdateStatus(ctx, admin(), o.ID, orders.StatusDelivered, orders.StatusOptions{})
	require.NoError(t, err)
	assert.NotNil(t, got.DeliveredAt)

	_, err = f.svc.UpdateStatus(ctx, admin(), o.ID, orders.StatusCancelled, orders.StatusOptions{})
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)
	f.sink.AssertCalled(t, "Emit", mock.Anything, []byte(o.ID), orders.EventOrderStatusChanged, mock.Anything)
}

func TestUpdateStatus_CancelledTargetRestoresStock(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	o := placeOne(t, f, 3)

	got, err := f.svc.UpdateStatus(context.Background(), vendor(), o.ID, orders.StatusCancelled, orders.StatusOptions{})
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	assert.Equal(t, 5, f.stock(t, "a"))
	f.sink.AssertCalled(t, "Emit", mock.Anything, []byte(o.ID), orders.EventOrderCancelled, mock.Anything)
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", "10.00", 5)
	o := placeOne(t, f, 1)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, owner(), o.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, admin(), o.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, auth.Principal{UserID: "other"}, o.ID)
	assert.ErrorIs(t, err, orders.ErrForbidden)

	mine, err := f.svc.ListMine(ctx, owner())
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	sold, err := f.svc.ListForVendor(ctx, vendor())
	require.NoError(t, err)
	assert.Len(t, sold, 1)
	_, err = f.svc.ListForVendor(ctx, owner())
	assert.ErrorIs(t, err, orders.ErrForbidden)
}
