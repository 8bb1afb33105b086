package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentspace/internal/infra/broker/kafka"
	"rentspace/internal/infra/config"
	mongodb "rentspace/internal/infra/db/mongo"
	"rentspace/internal/infra/inbox"
	"rentspace/internal/infra/notify"
	"rentspace/internal/infra/obs"
)

const inboxRetention = 7 * 24 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS is required for the notifier")
		os.Exit(1)
	}

	deduper, closeInbox := openInbox(ctx, cfg, logger)
	defer closeInbox()

	handler := &notify.Handler{
		Inbox:  deduper,
		Sink:   notify.LogSink{Logger: logger},
		Logger: logger,
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, handler, logger)
	if err != nil {
		logger.Error("kafka consumer init failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	topics := kafka.Topics(cfg.KafkaTopicPrefix, "booking", "review")
	logger.Info("notifier consuming", "topics", topics, "group", cfg.KafkaGroupID)
	if err := consumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("notifier stopped")
}

// openInbox keeps processed ids in Mongo when it is configured so restarts
// do not resend notifications.
func openInbox(ctx context.Context, cfg config.Config, logger *slog.Logger) (inbox.Deduper, func()) {
	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set, using in-memory inbox")
		return inbox.NewMemoryStore(), func() {}
	}
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err == nil {
		err = client.Ping(ctx)
	}
	if err != nil {
		logger.Warn("mongo inbox unavailable, using in-memory inbox", "error", err)
		return inbox.NewMemoryStore(), func() {}
	}
	return inbox.NewStore(client.DB, cfg.KafkaGroupID, inboxRetention), func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Close(closeCtx)
	}
}
