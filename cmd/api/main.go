package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/config"
	"github.com/ariefcatur/go-shop-orders/internal/httpx"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/memstore"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"github.com/ariefcatur/go-shop-orders/internal/postgres"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
	"github.com/ariefcatur/go-shop-orders/internal/users"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type stores struct {
	products  catalog.Store
	ledger    inventory.Ledger
	orders    orders.Store
	carts     cart.Store
	wishlists cart.WishlistStore
	users     users.Store
	close     func()
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, error) {
	if cfg.StorageDriver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		products := memstore.NewProducts()
		carts := memstore.NewCarts(products)
		return stores{
			products: products, ledger: products,
			orders: memstore.NewOrders(products),
			carts:  carts, wishlists: carts,
			users: memstore.NewUsers(),
			close: func() {},
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return stores{}, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return stores{}, err
	}
	carts := &postgres.Carts{DB: db}
	return stores{
		products: &postgres.Products{DB: db}, ledger: &postgres.Ledger{DB: db},
		orders: &postgres.Orders{DB: db},
		carts:  carts, wishlists: carts,
		users: &postgres.Users{DB: db},
		close: db.Close,
	}, nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer st.close()

	// Redis is an accelerator only; the API runs without it.
	var (
		idem   *redisx.Idempotency
		status *redisx.StatusCache
	)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	pctx, pcancel := context.WithTimeout(ctx, 2*time.Second)
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.Warn("redis unavailable, running without cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		idem = &redisx.Idempotency{RDB: rdb}
		status = &redisx.StatusCache{RDB: rdb}
	}
	pcancel()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.OrderTopic, 1024, log)
	prod.Start(ctx)

	var gateway payment.Gateway = payment.Unconfigured{}
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripe(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, gateway payments are disabled")
	}

	coupons, err := orders.ParseCoupons(cfg.Coupons)
	if err != nil {
		log.Fatal("parse coupons", zap.Error(err))
	}

	orderSvc := &orders.Service{
		Store:   st.orders,
		Ledger:  st.ledger,
		Gateway: gateway,
		Pricing: orders.Pricing{
			Shipping: orders.FlatShipping(cfg.ShippingFlat),
			Tax:      orders.FlatTax(cfg.TaxRate),
		},
		Coupons:        coupons,
		Events:         prod,
		Currency:       cfg.Currency,
		GatewayTimeout: cfg.GatewayTimeout,
		Producer:       cfg.ServiceName,
		Log:            log.Named("orders"),
	}
	cartSvc := &cart.Service{Carts: st.carts, Wishlists: st.wishlists, Products: st.products}
	catalogSvc := &catalog.Service{Store: st.products, Ledger: st.ledger, Log: log.Named("catalog")}

	router := httpx.NewRouter(log.Named("http"))
	httpx.Handlers{
		Orders:   &httpx.OrdersHandler{Orders: orderSvc, Carts: cartSvc, Idem: idem, Status: status, Log: log},
		Products: &httpx.ProductsHandler{Catalog: catalogSvc, Log: log},
		Carts:    &httpx.CartHandler{Carts: cartSvc, Log: log},
		Users:    &httpx.UsersHandler{Users: st.users, Log: log},
	}.Mount(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	prod.Close() // flushes queued events, then closes the writer
	prod.WaitClosed()
}
