package internal

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/remindr/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies pending goose migrations from the embedded
// migrations package and logs the resulting schema version.
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.MigrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	before, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	logger.Info("schema up to date", "from_version", before, "to_version", after)
	return nil
}
