package history

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file" // File source driver
)

// DefaultMigrationsPath locates the migration files relative to the
// working directory of the binary.
const DefaultMigrationsPath = "file://history/migrations"

// MigrateUp applies all pending up migrations.
// Returns nil when there are no pending migrations.
//
// The migrator takes ownership of the connection and closes it when done,
// so callers pass a database path and this function manages its own
// connection lifecycle.
func MigrateUp(dbPath, migrationsPath string) error {
	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("history: failed to open database for migration: %w", err)
	}

	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("history: failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back migrations by the given number of steps.
// Pass -1 to roll back everything.
func MigrateDown(dbPath, migrationsPath string, steps int) error {
	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("history: failed to open database for migration: %w", err)
	}

	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	var migrateErr error
	if steps == -1 {
		migrateErr = m.Down()
	} else {
		migrateErr = m.Steps(-steps)
	}
	if migrateErr != nil {
		if errors.Is(migrateErr, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("history: failed to roll back migrations: %w", migrateErr)
	}
	return nil
}

// MigrationVersion returns the current migration version and dirty state.
// Returns version=0 and dirty=false when no migrations have been applied.
func MigrationVersion(dbPath, migrationsPath string) (uint, bool, error) {
	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return 0, false, fmt.Errorf("history: failed to open database: %w", err)
	}

	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		db.Close()
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("history: failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// newMigrator builds a migrate.Migrate over an open connection.
// The returned migrator owns the connection; m.Close() closes it too.
func newMigrator(db *sql.DB, migrationsPath string) (*migrate.Migrate, error) {
	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		return nil, fmt.Errorf("history: failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("history: failed to create migrate instance: %w", err)
	}
	return m, nil
}
