package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/danastri/go-shop-services/internal/config"
	kafkax "github.com/danastri/go-shop-services/internal/kafka"
	"github.com/danastri/go-shop-services/internal/orders"
)

// eventtail follows the order event topics and logs every envelope.
// Operational tool: useful for watching adjust_failed volume in lieu of
// any automated reconciliation.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", cfg.ServiceName+"-eventtail").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group := getenv("EVENTTAIL_GROUP", "eventtail")
	workers := mustAtoi(os.Getenv("EVENTTAIL_WORKERS"), 4)
	topics := []string{orders.TopicOrderCreated, orders.TopicStockAdjustFailed}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topics, workers, logger)

	go func() {
		logger.Info().Str("group", group).Strs("topics", topics).Int("workers", workers).Msg("consumer started")
		if err := cons.Start(ctx, func(_ context.Context, m kafkago.Message) error {
			var env orders.Envelope
			if err := json.Unmarshal(m.Value, &env); err != nil {
				return err
			}
			logger.Info().
				Str("topic", m.Topic).
				Str("event_type", env.EventType).
				Str("event_id", env.EventID).
				Str("order_id", env.CorrelationID).
				RawJSON("payload", env.Payload).
				Msg("event")
			return nil
		}); err != nil {
			logger.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
