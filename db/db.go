package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string // sqlite3 only
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN renders the data source name for the configured driver.
func (c Config) DSN() string {
	switch c.Driver {
	case DriverSQLite:
		return c.Path + "?_foreign_keys=on&_busy_timeout=5000"
	case DriverPgx:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
	default:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
}

type Connection struct {
	DB *sqlx.DB
}

func NewConnection(cfg Config) (*Connection, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == DriverSQLite {
		// one writer at a time
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{DB: db}, nil
}

func (c *Connection) HealthCheck(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Connection) Close() error {
	return c.DB.Close()
}
