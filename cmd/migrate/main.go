package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.SourceDir, "migrations directory for create and validate")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			exit(logg, errors.New("missing -name for create"))
		}
		path, err := migrate.Scaffold(opts.dir, opts.name, time.Now())
		if err != nil {
			exit(logg, fmt.Errorf("create migration: %w", err))
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			exit(logg, fmt.Errorf("migration validation failed: %w", err))
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		exit(logg, fmt.Errorf("load config: %w", err))
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})
	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	migrator, err := migrate.New(sqlDB)
	if err != nil {
		return err
	}

	switch opts.cmd {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		version, err := migrator.Down(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", version), "migration rolled back")
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			applied := "pending"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-16d %-10s %s\n", st.Source.Version, st.State, applied)
		}
	case "version":
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrator.To(ctx, opts.version)
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	return nil
}

func exit(logg *logger.Logger, err error) {
	logg.Error(context.Background(), "migrate", err)
	os.Exit(1)
}
