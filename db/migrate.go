package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies ("up") or reverts ("down") the embedded schema. It opens its own
// handle because the migrate drivers close the instance they are given.
func Migrate(cfg Config, direction string) error {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}

	var driver migratedb.Driver
	var dir string
	switch cfg.Driver {
	case DriverSQLite:
		dir = "migrations/sqlite3"
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DriverPostgres, DriverPgx:
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		db.Close()
		return fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrations, dir)
	if err != nil {
		driver.Close()
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.Driver, driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate %s: %w", direction, err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Printf("Database schema at version %d (dirty=%v)", version, dirty)
	}
	return nil
}
