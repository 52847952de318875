// Package ingress implements the HTTP surface: publish, read, and stats
// endpoints fronting the broker and the store.
package ingress

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxgate/eventpipe/internal/config"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = 8080
	// MaxPort is the maximum valid port number.
	MaxPort = 65535
	// DefaultHost is the default server bind address.
	DefaultHost = "0.0.0.0"
	// DefaultReadTimeout is the default HTTP read timeout.
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout is the default HTTP write timeout.
	DefaultWriteTimeout = 15 * time.Second
	// DefaultShutdownTimeout is the default graceful shutdown timeout.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = slog.LevelInfo
	// DefaultMaxRequestSize bounds the /publish request body.
	DefaultMaxRequestSize = 1 << 20 // 1 MiB
	// DefaultListLimit is the default /events page size.
	DefaultListLimit = 20
)

// Static validation errors.
var (
	ErrInvalidPort            = errors.New("invalid port")
	ErrEmptyHost              = errors.New("host cannot be empty")
	ErrInvalidReadTimeout     = errors.New("read timeout must be positive")
	ErrInvalidWriteTimeout    = errors.New("write timeout must be positive")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
)

// Config holds ingress HTTP server configuration.
type Config struct {
	Port               int
	Host               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           slog.Level
	MaxRequestSize     int64
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int
}

// LoadConfig loads ingress configuration from environment variables with
// sensible defaults.
func LoadConfig() Config {
	return Config{
		Port:               config.GetEnvInt("EVENTPIPE_PORT", DefaultPort),
		Host:               config.GetEnvStr("EVENTPIPE_HOST", DefaultHost),
		ReadTimeout:        config.GetEnvDuration("EVENTPIPE_READ_TIMEOUT", DefaultReadTimeout),
		WriteTimeout:       config.GetEnvDuration("EVENTPIPE_WRITE_TIMEOUT", DefaultWriteTimeout),
		ShutdownTimeout:    config.GetEnvDuration("EVENTPIPE_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		LogLevel:           config.GetEnvLogLevel("EVENTPIPE_LOG_LEVEL", DefaultLogLevel),
		MaxRequestSize:     config.GetEnvInt64("EVENTPIPE_MAX_REQUEST_SIZE", DefaultMaxRequestSize),
		CORSAllowedOrigins: config.ParseCommaSeparatedList(config.GetEnvStr("EVENTPIPE_CORS_ALLOWED_ORIGINS", "*")),
		CORSAllowedMethods: config.ParseCommaSeparatedList(
			config.GetEnvStr("EVENTPIPE_CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
		),
		CORSAllowedHeaders: config.ParseCommaSeparatedList(
			config.GetEnvStr("EVENTPIPE_CORS_ALLOWED_HEADERS", "Content-Type,X-Correlation-ID"),
		),
		CORSMaxAge: config.GetEnvInt("EVENTPIPE_CORS_MAX_AGE", 86400),
	}
}

// Address returns the server address in host:port format.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the ingress configuration.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > MaxPort {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidPort, c.Port, MaxPort)
	}

	if c.Host == "" {
		return ErrEmptyHost
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidReadTimeout, c.ReadTimeout)
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidWriteTimeout, c.WriteTimeout)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidShutdownTimeout, c.ShutdownTimeout)
	}

	return nil
}

// CORSConfig adapts Config's CORS fields to middleware.CORSConfig.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// GetAllowedOrigins returns the allowed origins for CORS.
func (c CORSConfig) GetAllowedOrigins() []string { return c.AllowedOrigins }

// GetAllowedMethods returns the allowed methods for CORS.
func (c CORSConfig) GetAllowedMethods() []string { return c.AllowedMethods }

// GetAllowedHeaders returns the allowed headers for CORS.
func (c CORSConfig) GetAllowedHeaders() []string { return c.AllowedHeaders }

// GetMaxAge returns the max age for CORS preflight cache.
func (c CORSConfig) GetMaxAge() int { return c.MaxAge }

// ToCORSConfig converts Config's CORS fields to a middleware.CORSConfig.
func (c Config) ToCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: c.CORSAllowedOrigins,
		AllowedMethods: c.CORSAllowedMethods,
		AllowedHeaders: c.CORSAllowedHeaders,
		MaxAge:         c.CORSMaxAge,
	}
}
