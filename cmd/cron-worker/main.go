package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/wedanddone/wedanddone-backend/internal/cron"
	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
	"github.com/wedanddone/wedanddone-backend/pkg/migrate"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/redis"
)

const lockKeyFormat = "wd:cron-worker:lock:%s"

func main() {
	once := flag.Bool("once", false, "run a single maintenance cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg, *once); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger, once bool) (err error) {
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

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	outboxRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      cron.OutboxRetentionJobName,
		DB:        dbClient,
		Purge:     outbox.NewRepository(dbClient.DB()).DeletePublishedBefore,
		Retention: cfg.Maintenance.OutboxRetention,
		Logger:    logg,
		Metrics:   jobMetrics,
	})
	if err != nil {
		return err
	}
	dlqRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      cron.DLQRetentionJobName,
		DB:        dbClient,
		Purge:     outbox.NewDLQRepository(dbClient.DB()).DeleteFailedBefore,
		Retention: cfg.Maintenance.DLQRetention,
		Logger:    logg,
		Metrics:   jobMetrics,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{outboxRetention, dlqRetention},
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if once {
		return service.RunOnce(ctx)
	}
	logg.Info(ctx, "starting cron worker")
	if runErr := service.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
