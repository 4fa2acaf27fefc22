package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/loupes-storefront/pkg/config"
	"github.com/angelmondragon/loupes-storefront/pkg/db"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
)

// autoRunReason says why a binary should migrate on boot, or "" when it should not.
// SQLite databases are private to the process, so they are always brought up to date.
func autoRunReason(cfg *config.Config) string {
	switch {
	case cfg.FeatureFlags.UseSQLite:
		return "sqlite"
	case cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate:
		return "dev_auto_migrate"
	default:
		return ""
	}
}

// AutoRun applies pending embedded migrations at startup when autoRunReason allows it.
func AutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	reason := autoRunReason(cfg)
	if reason == "" {
		return nil
	}
	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	from, err := Version(ctx, sqlDB, client.Dialect())
	if err != nil {
		from = 0
	}
	if err := Run(ctx, sqlDB, client.Dialect(), "up"); err != nil {
		return fmt.Errorf("auto-migrate (%s): %w", reason, err)
	}
	to, err := Version(ctx, sqlDB, client.Dialect())
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"reason":       reason,
		"dialect":      client.Dialect(),
		"from_version": from,
		"to_version":   to,
	}), "schema migrated")
	return nil
}
