package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/wedanddone/wedanddone-backend/internal/consumers/lockreconcile"
	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/idempotency"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/pubsub"
	"github.com/wedanddone/wedanddone-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, pubsubClient.Close())
	}()

	accountStore, err := guestcount.NewAccountStore(dbClient, outbox.NewService(outbox.NewRepository(dbClient.DB()), logg))
	if err != nil {
		return err
	}
	sessionStore, err := guestcount.NewSessionStore(redisClient, cfg.Guest.SessionTTL)
	if err != nil {
		return err
	}
	registry, err := guestcount.NewRegistry(guestcount.RegistryParams{
		Store:   guestcount.DualStore{Accounts: accountStore, Sessions: sessionStore},
		Logger:  logg,
		Metrics: metrics.NewBookingMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	// Markers outlive the subscription's redelivery window.
	claims, err := idempotency.NewManager(redisClient, cfg.Maintenance.OutboxRetention)
	if err != nil {
		return err
	}
	subscription := pubsubClient.BookingSubscription()
	if subscription == nil {
		return errors.New("booking subscription is not configured")
	}
	reconciler, err := lockreconcile.NewConsumer(subscription, registry, claims, logg)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Readiness: map[string]pinger{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
			"pubsub":   pubsubClient.Ping,
		},
		Reconciler: reconciler,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting worker")
	if runErr := service.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logg.Info(ctx, "worker shutting down gracefully")
	return nil
}
