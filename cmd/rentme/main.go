package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"rentspace/internal/app/bootstrap"
	"rentspace/internal/app/middleware"
	"rentspace/internal/app/policies"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
	"rentspace/internal/infra/broker/kafka"
	"rentspace/internal/infra/config"
	mongodb "rentspace/internal/infra/db/mongo"
	"rentspace/internal/infra/db/postgres"
	"rentspace/internal/infra/fixtures"
	ginserver "rentspace/internal/infra/http/gin"
	redislock "rentspace/internal/infra/lock/redis"
	"rentspace/internal/infra/obs"
	infraoutbox "rentspace/internal/infra/outbox"
	"rentspace/internal/infra/payments"
	"rentspace/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.close()

	locker, closeLocker, err := openLocker(ctx, cfg, logger)
	if err != nil {
		logger.Error("lock backend init failed", "error", err)
		os.Exit(1)
	}
	defer closeLocker()

	mode, err := domainbooking.ParseOverlapMode(cfg.OverlapMode)
	if err != nil {
		logger.Error("invalid overlap mode", "error", err)
		os.Exit(1)
	}

	metrics := obs.NewMetrics()
	app := bootstrap.Build(bootstrap.Deps{
		UoWFactory:      store.factory,
		Idempotency:     store.idempotency,
		Locker:          locker,
		LockTTL:         cfg.LockTTL,
		Gateway:         newGateway(cfg, logger),
		OverlapMode:     mode,
		Clock:           func() time.Time { return time.Now().UTC() },
		IDGenerator:     func() string { return uuid.NewString() },
		Metrics:         metrics,
		DefaultCurrency: cfg.DefaultCurrency,
		Logger:          logger,
	})

	seedFixtures(ctx, cfg, store.factory, logger)

	if producer, err := openProducer(cfg); err != nil {
		logger.Warn("kafka producer unavailable, outbox relay disabled", "error", err)
	} else if producer != nil {
		defer producer.Close()
		worker := &infraoutbox.Worker{
			Store:       store.outbox,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	handlers := ginserver.Handlers{
		Listings:     &ginserver.ListingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Availability: &ginserver.AvailabilityHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Bookings:     &ginserver.BookingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Reviews:      &ginserver.ReviewsHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Metrics:      metrics.Handler(),
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: store.ready}, handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "overlap_mode", mode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

// storage bundles everything a storage driver contributes to the process.
type storage struct {
	factory     uow.UoWFactory
	outbox      infraoutbox.Source
	idempotency middleware.IdempotencyStore
	ready       func(ctx context.Context) error
	close       func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			return storage{}, fmt.Errorf("ping mongo: %w", err)
		}
		box := infraoutbox.NewStore(client.DB)
		logger.Info("mongo storage ready", "database", cfg.MongoDB)
		return storage{
			factory:     mongodb.NewFactory(client.DB, box),
			outbox:      box,
			idempotency: mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			ready:       client.Ping,
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Close(closeCtx); err != nil {
					logger.Warn("mongo disconnect failed", "error", err)
				}
			},
		}, nil
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return storage{}, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			return storage{}, fmt.Errorf("migrate postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return storage{}, err
		}
		logger.Info("postgres storage ready")
		return storage{
			factory:     postgres.Factory{DB: db},
			outbox:      postgres.OutboxSource{DB: db},
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			ready:       sqlDB.PingContext,
			close: func() {
				if err := sqlDB.Close(); err != nil {
					logger.Warn("postgres close failed", "error", err)
				}
			},
		}, nil
	default:
		mem := memory.NewStore()
		logger.Info("in-memory storage ready")
		return storage{
			factory:     memory.NewFactory(mem),
			outbox:      memory.NewOutboxSource(mem),
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			ready:       func(context.Context) error { return nil },
			close:       func() {},
		}, nil
	}
}

// openLocker uses Redis when configured, otherwise an in-process keyed lock.
func openLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (middleware.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return memory.NewKeyedLocker(), func() {}, nil
	}
	client := redislock.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redislock.Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis locks enabled", "addr", cfg.RedisAddr)
	return &redislock.Locker{Client: client, Wait: cfg.LockTTL}, func() { _ = client.Close() }, nil
}

func newGateway(cfg config.Config, logger *slog.Logger) policies.PaymentGateway {
	if cfg.PaymentsMode == config.PaymentsHTTP {
		return &payments.HTTPGateway{
			Client:   &http.Client{Timeout: cfg.PaymentsTimeout},
			Endpoint: cfg.PaymentsURL,
			Logger:   logger,
		}
	}
	logger.Warn("using fake payment gateway")
	return payments.NewFakeGateway()
}

func openProducer(cfg config.Config) (*kafka.Producer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, nil
	}
	return kafka.NewProducer(cfg.KafkaBrokers, nil)
}

func seedFixtures(ctx context.Context, cfg config.Config, factory uow.UoWFactory, logger *slog.Logger) {
	path := cfg.ListingsFixtures
	if path == "" {
		path = defaultListingFixturesPath()
	}
	file, err := fixtures.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return
		}
		logger.Warn("listing fixtures load failed", "path", path, "error", err)
		return
	}
	created, err := fixtures.Seed(ctx, factory, file, time.Now().UTC())
	if err != nil {
		logger.Warn("listing fixtures seed failed", "path", path, "error", err)
		return
	}
	logger.Info("listing fixtures imported", "path", path, "created", created)
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("configs", "listings.yaml"),
		filepath.Join("..", "..", "configs", "listings.yaml"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
