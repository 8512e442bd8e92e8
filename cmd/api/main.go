package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/wedanddone/wedanddone-backend/api/controllers"
	"github.com/wedanddone/wedanddone-backend/api/routes"
	"github.com/wedanddone/wedanddone-backend/internal/accounts"
	"github.com/wedanddone/wedanddone-backend/internal/checkout"
	"github.com/wedanddone/wedanddone-backend/internal/contracts"
	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/idempotency"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
	"github.com/wedanddone/wedanddone-backend/pkg/migrate"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/redis"
	"github.com/wedanddone/wedanddone-backend/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	squareClient, err := square.NewClient(bootCtx, cfg.Square, logg)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(promRegistry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	accountStore, err := guestcount.NewAccountStore(dbClient, outboxService)
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
		Metrics: bookingMetrics,
	})
	if err != nil {
		return err
	}

	claims, err := idempotency.NewManager(redisClient, cfg.Guest.SessionTTL)
	if err != nil {
		return err
	}
	accountService, err := accounts.NewService(accounts.ServiceParams{
		DB:         dbClient,
		Repo:       accounts.NewRepository(dbClient.DB()),
		GuestCount: registry,
		Sessions:   sessionStore,
		Claims:     claims,
		Cache:      redisClient,
		Outbox:     outboxService,
		Logger:     logg,
		SessionTTL: cfg.Guest.SessionTTL,
	})
	if err != nil {
		return err
	}

	contractRepo := contracts.NewRepository(dbClient.DB())
	contractService, err := contracts.NewService(contracts.ServiceParams{
		DB:       dbClient,
		Repo:     contractRepo,
		Profiles: accountService,
		Outbox:   outboxService,
		Metrics:  bookingMetrics,
		Logger:   logg,
		Currency: cfg.Square.Currency,
	})
	if err != nil {
		return err
	}

	changeRequests, err := guestcount.NewChangeRequestService(guestcount.ChangeRequestParams{
		DB:       dbClient,
		Repo:     guestcount.NewChangeRequestRepository(dbClient.DB()),
		Registry: registry,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:             dbClient,
		Contracts:      contractRepo,
		Charges:        checkout.NewRepository(dbClient.DB()),
		Processor:      squareClient,
		GuestCount:     registry,
		Outbox:         outboxService,
		Metrics:        bookingMetrics,
		Logger:         logg,
		LockOnCheckout: cfg.FeatureFlags.LockOnCheckout,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Params{
		Config:   cfg,
		Logger:   logg,
		Gatherer: promRegistry,
		Readiness: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
		},
		Idempotency:    redisClient,
		Accounts:       accountService,
		GuestCount:     registry,
		ChangeRequests: changeRequests,
		Contracts:      contractService,
		Checkout:       checkoutService,
		DeadLetters:    outbox.NewDLQRepository(dbClient.DB()),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": server.Addr,
	})

	go registry.Watch(ctx, guestcount.DefaultSubscriptionBuffer)

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
