package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"warehub/internal/app/feed"
	"warehub/internal/app/middleware"
	appoutbox "warehub/internal/app/outbox"
	"warehub/internal/app/policies"
	authsvc "warehub/internal/app/services/auth"
	"warehub/internal/app/uow"
	"warehub/internal/app/wiring"
	domainuser "warehub/internal/domain/user"
	"warehub/internal/infra/broker/kafka"
	"warehub/internal/infra/config"
	mongostore "warehub/internal/infra/db/mongo"
	"warehub/internal/infra/fixtures"
	ginserver "warehub/internal/infra/http/gin"
	"warehub/internal/infra/inbox"
	"warehub/internal/infra/obs"
	infraoutbox "warehub/internal/infra/outbox"
	"warehub/internal/infra/security"
	"warehub/internal/infra/storage/memory"
	"warehub/internal/infra/storage/s3"
	"warehub/internal/infra/validation"
)

const inboxRetention = 7 * 24 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", "info").Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	if err := app.seed(ctx, cfg.ListingsFixtures); err != nil {
		logger.Warn("fixtures not loaded", "error", err, "path", cfg.ListingsFixtures)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready:   app.ready,
		Timeout: 2 * time.Second,
	}, app.handlers)

	var wg sync.WaitGroup
	for _, run := range app.background {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode, "media", cfg.MediaMode, "instance", cfg.InstanceID)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	seeder     fixtures.Seeder
	background []func(ctx context.Context) error
	readiness  []func(ctx context.Context) error
	closers    []func()
	logger     *slog.Logger
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{logger: logger}
	hub := feed.NewHub(cfg.StreamBuffer, logger)
	app.closers = append(app.closers, hub.Close)

	var (
		factory     uow.UoWFactory
		box         appoutbox.Outbox
		idempotency middleware.IdempotencyStore
		users       domainuser.Repository
	)
	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		})
		if err := client.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		store, err := infraoutbox.NewStore(ctx, client.DB, nil)
		if err != nil {
			return nil, err
		}
		idStore, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			return nil, err
		}
		factory = mongostore.Factory{DB: client.DB}
		box = store
		idempotency = idStore
		users = mongostore.NewUserRepository(client.DB)
		app.readiness = append(app.readiness, client.Ping)

		worker, err := app.buildDelivery(ctx, cfg, client, store, hub)
		if err != nil {
			return nil, err
		}
		app.background = append(app.background, worker.Run)
	default:
		store := memory.NewStore(memory.WithLogger(logger))
		factory = store
		box = memory.NewOutbox(store, hub)
		idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		users = memory.NewUserRepository()
		if len(cfg.KafkaBrokers) > 0 {
			logger.Warn("kafka brokers ignored in memory mode")
		}
	}

	media, err := app.buildMedia(cfg, logger)
	if err != nil {
		return nil, err
	}

	identity, err := buildIdentity(cfg, users, logger)
	if err != nil {
		return nil, err
	}
	app.seeder = fixtures.Seeder{
		Users:      users,
		Passwords:  identity.Passwords,
		UoWFactory: factory,
		Logger:     logger,
	}

	buses := wiring.Build(wiring.Deps{
		UoWFactory:    factory,
		Outbox:        box,
		Idempotency:   idempotency,
		Validator:     validation.New(),
		Users:         users,
		Media:         media,
		Hub:           hub,
		Logger:        logger,
		UniqueReviews: cfg.UniqueReviews,
	})
	app.handlers.Auth = ginserver.AuthHandler{Service: identity, Logger: logger}
	app.handlers.AuthMiddleware = ginserver.AuthMiddleware{Resolver: identity, Logger: logger}.Handle
	app.handlers.Listing = ginserver.ListingHandler{Commands: buses.Commands, Queries: buses.Queries, MaxUploadBytes: cfg.MaxUploadBytes, Logger: logger}
	app.handlers.Booking = ginserver.BookingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger}
	app.handlers.Conversation = ginserver.ConversationHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger}
	app.handlers.Review = ginserver.ReviewHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger}
	app.handlers.Inquiry = ginserver.InquiryHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger}
	return app, nil
}

// buildDelivery sets up the outbox worker. With brokers configured events go
// through Kafka and come back to every instance's hub through its own
// consumer group; without them the worker feeds the local hub directly.
func (a *application) buildDelivery(ctx context.Context, cfg config.Config, client *mongostore.Client, store *infraoutbox.Store, hub *feed.Hub) (*infraoutbox.Worker, error) {
	worker := &infraoutbox.Worker{
		Store:       store,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "warehub/" + cfg.InstanceID,
		ID:          cfg.InstanceID + "-" + uuid.NewString()[:8],
		Backoff:     cfg.RetryBackoff,
		Logger:      a.logger,
	}
	if len(cfg.KafkaBrokers) == 0 {
		worker.Producer = infraoutbox.LocalProducer{Dispatcher: hub}
		return worker, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("warehub-"+cfg.InstanceID))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = producer.Close() })
	worker.Producer = producer

	box, err := inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID, inboxRetention)
	if err != nil {
		return nil, err
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, kafka.NewConfig("warehub-"+cfg.InstanceID), kafka.FeedRelay{
		Inbox:      box,
		Dispatcher: hub,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = consumer.Close() })
	topics := kafka.FeedTopics(cfg.KafkaTopicPrefix)
	a.background = append(a.background, func(ctx context.Context) error {
		return consumer.Run(ctx, topics)
	})
	a.logger.Info("kafka delivery enabled", "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroupID, "topics", topics)
	return worker, nil
}

func (a *application) buildMedia(cfg config.Config, logger *slog.Logger) (policies.MediaStore, error) {
	if cfg.MediaMode == config.MediaS3 {
		store, err := s3.NewMediaStore(s3.Options{
			Endpoint:      cfg.S3Endpoint,
			UseSSL:        cfg.S3UseSSL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicEndpoint,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		a.readiness = append(a.readiness, store.Ready)
		return store, nil
	}
	store := memory.NewMediaStore(cfg.PublicBaseURL + "/media")
	a.handlers.Media = ginserver.MediaHandler{Store: store}.Serve
	return store, nil
}

func buildIdentity(cfg config.Config, users domainuser.Repository, logger *slog.Logger) (*authsvc.Service, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		generated, err := security.RandomSecret(32)
		if err != nil {
			return nil, err
		}
		secret = generated
		logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	codec, err := security.NewJWTCodec(secret, nil)
	if err != nil {
		return nil, err
	}
	return &authsvc.Service{
		Users:      users,
		Passwords:  security.BcryptHasher{Cost: bcrypt.DefaultCost},
		Tokens:     codec,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}, nil
}

func (a *application) seed(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	file, err := fixtures.Load(path)
	if err != nil {
		return err
	}
	res, err := a.seeder.Seed(ctx, file)
	if err != nil {
		return err
	}
	a.logger.Info("fixtures applied", "path", path, "users", res.Users, "listings", res.Listings)
	return nil
}

func (a *application) ready(ctx context.Context) error {
	for _, check := range a.readiness {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// close releases resources in reverse order of acquisition.
func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
