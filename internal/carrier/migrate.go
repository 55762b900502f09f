package carrier

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrateAuditSchema applies every pending SQL migration under
// internal/carrier/migrations against dsn, using golang-migrate rather than
// gorm's AutoMigrate so the audit trail's schema is versioned the same way
// the teacher's pricing_service versions its own Postgres schema. A nil
// error also covers the already-up-to-date case (ErrNoChange).
func MigrateAuditSchema(dsn string) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("carrier: open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("carrier: init migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("carrier: apply audit schema migrations: %w", err)
	}
	return nil
}
