package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packfinderz-inventory/pkg/config"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
)

// ShouldAutoRun reports whether a process should apply migrations at boot.
// Sqlite stores are always local, so they migrate regardless of the flag.
func ShouldAutoRun(cfg *config.Config) bool {
	if cfg.DB.Driver == config.DBDriverSQLite {
		return true
	}
	return cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}

// MaybeRunDev validates and applies the bundled migrations when ShouldAutoRun
// allows it. Production postgres goes through cmd/migrate instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !ShouldAutoRun(cfg) {
		return nil
	}
	if err := ValidateDir(DefaultDir); err != nil {
		return fmt.Errorf("validating %s: %w", DefaultDir, err)
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "driver": cfg.DB.Driver})
	before, err := CurrentVersion(ctx, sqlDB, cfg.DB.Driver)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if err := Run(ctx, sqlDB, cfg.DB.Driver, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	after, err := CurrentVersion(ctx, sqlDB, cfg.DB.Driver)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"from_version": before, "to_version": after}), "inventory schema migrated")
	return nil
}
