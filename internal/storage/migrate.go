package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	applog "approvals/internal/log"
)

// Employee and transaction tables; see migrations/.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

// ErrDirtySchema means an earlier migration stopped half way and the
// database needs manual repair before the backend can use it.
var ErrDirtySchema = errors.New("approvals schema is dirty")

// openMigrator opens its own connection to dbPath; closing the migrator
// closes that connection.
func openMigrator(dbPath string) (*migrate.Migrate, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open schema connection: %w", err)
	}
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite schema driver: %w", err)
	}
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("embedded schema source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("schema migrator: %w", err)
	}
	return m, nil
}

// MigrateSchema brings the approvals schema at dbPath to the latest
// version and returns that version.
func MigrateSchema(dbPath string) (uint, error) {
	m, err := openMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply approvals schema: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("version %d: %w", version, ErrDirtySchema)
	}

	slog.Debug("Approvals schema ready",
		applog.FieldComponent, applog.ComponentStorage,
		"db_path", dbPath,
		"schema_version", version)
	return version, nil
}

// SchemaVersion reports the applied version without migrating. A database
// that was never migrated reports 0.
func SchemaVersion(dbPath string) (uint, error) {
	m, err := openMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return version, ErrDirtySchema
	}
	return version, nil
}
