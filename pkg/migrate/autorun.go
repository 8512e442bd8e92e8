package migrate

import (
	"context"
	"fmt"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on boot for local stacks with
// auto-migrate enabled. Other environments run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate || cfg.DB.Driver == db.DriverSQLite {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB)
	if err != nil {
		return err
	}

	applied, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "applied": applied}), "dev migrations applied")
	return nil
}
