package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const migrationsTable = "schema_migrations"

type (
	// Runner drives the embedded migrations against a live database.
	Runner interface {
		Up() error
		Down() error
		Status() (version uint, dirty bool, err error)
		Close() error
	}

	runner struct {
		migrate *migrate.Migrate
		logger  *slog.Logger
	}

	// migrateLogger adapts *slog.Logger to migrate.Logger (and io.Writer, for
	// broader compatibility with libraries that expect one).
	migrateLogger struct {
		logger *slog.Logger
	}
)

var (
	_ Runner         = (*runner)(nil)
	_ migrate.Logger = (*migrateLogger)(nil)
	_ io.Writer      = (*migrateLogger)(nil)
)

// NewRunner builds a migration Runner over db using the embedded migration
// source. The caller owns db's lifecycle; Close only releases migrate's own
// handles, not db itself.
func NewRunner(db *sql.DB, logger *slog.Logger) (Runner, error) {
	if err := Validate(FS()); err != nil {
		return nil, fmt.Errorf("migrations: embedded migrations failed validation: %w", err)
	}

	// A dedicated *sql.Conn, not the pool itself: a driver built with
	// WithInstance closes the whole *sql.DB when migrate is closed.
	conn, err := db.Conn(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migrations: acquiring connection: %w", err)
	}

	driver, err := postgres.WithConnection(context.Background(), conn, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("migrations: creating postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("migrations: creating embedded source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: creating migrate instance: %w", err)
	}

	m.Log = &migrateLogger{logger: logger}

	return &runner{migrate: m, logger: logger}, nil
}

func (r *runner) Up() error {
	err := r.migrate.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up: %w", err)
	}

	return nil
}

func (r *runner) Down() error {
	err := r.migrate.Steps(-1)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: down: %w", err)
	}

	return nil
}

func (r *runner) Status() (uint, bool, error) {
	version, dirty, err := r.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("migrations: version: %w", err)
	}

	return version, dirty, nil
}

func (r *runner) Close() error {
	sourceErr, dbErr := r.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("migrations: closing source: %w", sourceErr)
	}

	if dbErr != nil {
		return fmt.Errorf("migrations: closing database: %w", dbErr)
	}

	return nil
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return true
}

func (l *migrateLogger) Write(p []byte) (int, error) {
	l.logger.Info(string(p))

	return len(p), nil
}
