// Package store provides the persistence adapter over the processed_events relation.
package store

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/fluxgate/eventpipe/internal/config"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// ErrDatabaseURLEmpty is returned when the database URL is an empty string.
var ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

// Config holds PostgreSQL connection configuration with production-ready defaults.
type Config struct {
	databaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig loads PostgreSQL configuration from environment variables with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		databaseURL:     config.GetEnvStr("EVENTPIPE_DATABASE_URL", ""),
		MaxOpenConns:    config.GetEnvInt("EVENTPIPE_DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("EVENTPIPE_DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("EVENTPIPE_DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("EVENTPIPE_DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
	}
}

// Validate checks if the PostgreSQL configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	return nil
}

// MaskDatabaseURL returns the configured connection string with any
// password component replaced by "***", safe to place in a log line.
func (c *Config) MaskDatabaseURL() string {
	if c.databaseURL == "" {
		return ""
	}

	parsed, err := url.Parse(c.databaseURL)
	if err != nil {
		return c.databaseURL
	}

	password, hasPassword := parsed.User.Password()
	if !hasPassword || password == "" {
		return c.databaseURL
	}

	// Redacted swaps the password for "xxxxx"; url.UserPassword would
	// percent-encode a literal "***" as "%2A%2A%2A".
	return strings.Replace(parsed.Redacted(), ":xxxxx@", ":***@", 1)
}
