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
	"github.com/danastri/go-shop-services/internal/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	service := cfg.ServiceName + "-inventory"
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", service).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.InventoryDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.MigrateInventory(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate")
	}
	if err := postgres.SeedProducts(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("seed products")
	}

	svc := &inventory.Service{
		Store: &inventory.Repo{DB: db},
		Log:   logger,
	}

	router := httpx.NewRouter(service)
	ph := &httpx.ProductsHandler{Service: svc}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.InventoryHTTPAddr, Handler: router}

	go func() {
		logger.Info().Str("addr", cfg.InventoryHTTPAddr).Msg("http listening")
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
}
