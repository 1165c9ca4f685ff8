package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	database "github.com/Mr-Leon909/tsutsuji-app/db"
)

const (
	SessionBackendFile  = "file"
	SessionBackendRedis = "redis"
)

// Config holds the settings of one client process.
type Config struct {
	HTTPPort string
	GRPCPort string

	Database    database.Config
	AutoMigrate bool

	Session SessionConfig
	Redis   RedisConfig
	NATS    NATSConfig

	UploadsDir        string
	MaxUploadBytes    int64
	AllowedOrigins    []string
	RollbackOnFailure bool
	HealthInterval    time.Duration
}

type SessionConfig struct {
	Backend string
	Dir     string
	Secret  string
	Expiry  time.Duration
}

type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	KeyPrefix string
}

type NATSConfig struct {
	URL           string
	ClientID      string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	dbCfg, err := LoadDatabaseConfig("")
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		GRPCPort:    getEnv("GRPC_PORT", "50051"),
		Database:    *dbCfg,
		AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		Session: SessionConfig{
			Backend: getEnv("SESSION_BACKEND", SessionBackendFile),
			Dir:     getEnv("SESSION_DIR", ".tsutsuji"),
			Secret:  getEnv("SESSION_SECRET", ""),
			Expiry:  getEnvAsDuration("SESSION_EXPIRY", 30*24*time.Hour),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "tsutsuji:session:"),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			ClientID:      getEnv("NATS_CLIENT_ID", "tsutsuji-"+hostname+"-"+uuid.NewString()[:8]),
			MaxReconnects: getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait: getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		UploadsDir:        getEnv("UPLOADS_DIR", "uploads"),
		MaxUploadBytes:    int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
		AllowedOrigins:    getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RollbackOnFailure: getEnvAsBool("ROLLBACK_ON_FAILURE", false),
		HealthInterval:    getEnvAsDuration("HEALTH_INTERVAL", 15*time.Second),
	}

	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	switch cfg.Session.Backend {
	case SessionBackendFile, SessionBackendRedis:
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}

	return cfg, nil
}

// LoadDatabaseConfig loads database configuration from environment variables
func LoadDatabaseConfig(prefix string) (*database.Config, error) {
	cfg := &database.Config{
		Driver:       getEnv(prefix+"DB_DRIVER", database.DriverPostgres),
		Host:         getEnv(prefix+"DB_HOST", "localhost"),
		User:         getEnv(prefix+"DB_USER", "postgres"),
		Password:     getEnv(prefix+"DB_PASSWORD", "postgres"),
		DBName:       getEnv(prefix+"DB_NAME", "tsutsuji"),
		SSLMode:      getEnv(prefix+"DB_SSLMODE", "disable"),
		Path:         getEnv(prefix+"DB_PATH", "tsutsuji.db"),
		MaxOpenConns: getEnvAsInt(prefix+"DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns: getEnvAsInt(prefix+"DB_MAX_IDLE_CONNS", 5),
		MaxLifetime:  getEnvAsDuration(prefix+"DB_MAX_LIFETIME", 5*time.Minute),
	}

	var err error
	cfg.Port, err = strconv.Atoi(getEnv(prefix+"DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid database port: %w", err)
	}

	switch cfg.Driver {
	case database.DriverPostgres, database.DriverPgx:
		if cfg.DBName == "" {
			return nil, fmt.Errorf("database name is required (set %sDB_NAME)", prefix)
		}
	case database.DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is required (set %sDB_PATH)", prefix)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
