package migrate

import (
	"context"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/db"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

// AutoRunDev applies pending migrations on startup in dev when
// TOOLYARD_AUTO_MIGRATE is set. Other environments run cmd/migrate explicitly.
func AutoRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}
	logg.Info(ctx, "applying dev migrations")
	return runner.Apply(ctx, CommandUp, 0)
}
