package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-shop-orders/internal/config"
	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/projector"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projector.Service{
		Redis:       rdb,
		Cache:       &redisx.StatusCache{RDB: rdb},
		ServiceName: cfg.ServiceName + "-projector",
		Log:         log.Named("projector"),
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, cfg.OrderTopic, cfg.ProjectorWorkers, log.Named("consumer"))
	log.Info("projector started",
		zap.String("group", cfg.ProjectorGroup),
		zap.String("topic", cfg.OrderTopic),
		zap.Int("workers", cfg.ProjectorWorkers))

	// Start returns once ctx is cancelled and in-flight messages are done.
	if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
		log.Error("consumer exit", zap.Error(err))
		cancel()
		os.Exit(1)
	}
	log.Info("projector stopped")
}
