package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fluxgate/eventpipe/internal/store/migrations"
)

// EnsureSchema applies all pending migrations against db. It is idempotent:
// calling it against an already-migrated database is a no-op.
func EnsureSchema(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	runner, err := migrations.NewRunner(db, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	defer func() { _ = runner.Close() }()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := runner.Up(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	return nil
}
