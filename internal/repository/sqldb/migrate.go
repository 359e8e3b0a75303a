package sqldb

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// applyMigrations brings the schema of dbName up to date. The migrate instance
// is not closed since closing it would close the shared *sql.DB.
func applyMigrations(dir, dbName string, driver database.Driver, log *zap.Logger) error {
	src, err := iofs.New(migrations, dir)
	if err != nil {
		return fmt.Errorf("iofs.New: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("migrate.NewWithInstance: %w", err)
	}

	log.Info("applying migrations", zap.String("database", dbName))
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("nothing to migrate")
			return nil
		}
		return fmt.Errorf("error when migrating: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("migrate.Version: %w", err)
	}
	log.Info("migrated successfully", zap.Uint("version", version))
	return nil
}
