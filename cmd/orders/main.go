package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/danastri/go-shop-services/internal/config"
	"github.com/danastri/go-shop-services/internal/httpx"
	"github.com/danastri/go-shop-services/internal/inventory"
	kafkax "github.com/danastri/go-shop-services/internal/kafka"
	"github.com/danastri/go-shop-services/internal/orders"
	"github.com/danastri/go-shop-services/internal/postgres"
	"github.com/danastri/go-shop-services/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	service := cfg.ServiceName + "-orders"
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", service).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.MigrateOrders(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate")
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)

	coord := &orders.Coordinator{
		Store:         &orders.Repo{DB: db},
		Adjuster:      inventory.NewClient(cfg.InventoryBaseURL, logger),
		Events:        prod,
		Service:       service,
		AdjustTimeout: cfg.AdjustTimeout,
		Log:           logger,
	}

	router := httpx.NewRouter(service)
	oh := &httpx.OrdersHandler{Coordinator: coord, Redis: rdb}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	prod.WaitClosed() // drain
}
