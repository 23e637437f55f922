// Package storage provides record store implementations for the order
// catalog: a production PostgreSQL store and an in-memory store for tests
// and local runs.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gridsync-io/gridsync/internal/config"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute

	connectTimeout = 10 * time.Second
)

// ErrDatabaseURLEmpty is returned when no database URL is configured.
var ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

// Config holds PostgreSQL connection configuration.
type Config struct {
	databaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig loads connection configuration from environment variables
// with production defaults.
func LoadConfig() *Config {
	return &Config{
		databaseURL:     config.GetEnvStr("DATABASE_URL", ""),
		MaxOpenConns:    config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	return nil
}

// MaskDatabaseURL returns the URL with any password replaced, safe for
// logging.
func (c *Config) MaskDatabaseURL() string {
	url := c.databaseURL

	schemeEnd := strings.Index(url, "://")
	if schemeEnd == -1 {
		return url
	}

	afterScheme := url[schemeEnd+3:]

	atIndex := strings.LastIndex(afterScheme, "@")
	if atIndex == -1 {
		return url
	}

	userInfo := afterScheme[:atIndex]

	colonIndex := strings.Index(userInfo, ":")
	if colonIndex == -1 {
		return url
	}

	masked := userInfo[:colonIndex] + ":***"

	return url[:schemeEnd+3] + masked + afterScheme[atIndex:]
}

// Connection wraps the shared *sql.DB with its pool settings applied.
// Stores receive it by injection; the caller owns its lifecycle.
type Connection struct {
	DB *sql.DB
}

// NewConnection opens a PostgreSQL connection pool and verifies it with a
// bounded ping.
func NewConnection(cfg *Config) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Connection{DB: db}, nil
}

// Close closes the underlying pool.
func (c *Connection) Close() error {
	return c.DB.Close()
}

// HealthCheck verifies the database answers within the given context.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	return nil
}

// newTestConfig builds a Config directly from a URL, for integration
// tests that get their URL from a container.
func newTestConfig(databaseURL string) *Config {
	return &Config{
		databaseURL:     databaseURL,
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	}
}
