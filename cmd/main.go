package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/initinere/internal/auth"
	"github.com/ukydev/initinere/internal/config"
	"github.com/ukydev/initinere/internal/db"
	"github.com/ukydev/initinere/internal/handlers"
	"github.com/ukydev/initinere/internal/middleware"
	"github.com/ukydev/initinere/internal/notify"
	"github.com/ukydev/initinere/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func configureLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" || cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.WithError(err).Error("Failed to close store")
		}
	}()

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if cfg.IsProduction() && cfg.JWTSecret == config.DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}

	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	idempotency, closeRedis := newIdempotency(ctx, cfg)
	defer closeRedis()

	checks := service.NewSafetyCheckService(store.SafetyChecks, store.Trips)
	trips := service.NewTripService(store.Trips, checks)
	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           authService,
		Store:          store,
		SafetyChecks:   checks,
		Trips:          trips,
		Emergencies:    service.NewEmergencyService(store.Emergencies, trips, publisher),
		Dashboard:      service.NewDashboardService(store.Trips, store.SafetyChecks, store.Emergencies),
		Idempotency:    idempotency,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
		TrustProxy:     cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "store": store.Driver}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the configured storage driver.
func openStore(ctx context.Context, cfg *config.Config) (*db.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("Using the in-memory store, data is lost on restart")
		return db.NewMemoryStore(), nil
	case config.StoreMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoTimeout)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		indexCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
		defer cancel()
		if err := db.EnsureIndexes(indexCtx, client.Database(cfg.MongoDBName)); err != nil {
			client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.WithField("database", cfg.MongoDBName).Info("Connected to MongoDB")
		return db.NewMongoStore(client, cfg.MongoDBName), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// newPublisher returns the MQTT publisher when a broker is configured. A
// broker that cannot be reached degrades to no alerts rather than no service.
func newPublisher(cfg *config.Config) (notify.Publisher, func()) {
	if cfg.MQTTBroker == "" {
		return notify.NopPublisher{}, func() {}
	}
	publisher, err := notify.NewMQTTPublisher(notify.MQTTConfig{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
	})
	if err != nil {
		log.WithError(err).WithField("broker", cfg.MQTTBroker).Error("MQTT unavailable, emergency alerts disabled")
		return notify.NopPublisher{}, func() {}
	}
	log.WithField("broker", cfg.MQTTBroker).Info("Publishing emergency alerts over MQTT")
	return publisher, publisher.Close
}

// newIdempotency enables Idempotency-Key replays when Redis is configured.
func newIdempotency(ctx context.Context, cfg *config.Config) (*middleware.IdempotencyMiddleware, func()) {
	if cfg.RedisURL == "" {
		return nil, func() {}
	}
	client, err := db.ConnectRedis(ctx, cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Error("Redis unavailable, Idempotency-Key replays disabled")
		return nil, func() {}
	}
	log.Info("Idempotency-Key replays enabled")
	return middleware.NewIdempotencyMiddleware(middleware.NewRedisIdempotencyStore(client), cfg.IdempotencyTTL), closeRedis(client)
}

func closeRedis(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close redis client")
		}
	}
}
