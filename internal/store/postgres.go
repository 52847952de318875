package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/fluxgate/eventpipe/internal/events"
)

const defaultListLimit = 20

// postgresStore is the Store implementation backed by PostgreSQL.
type postgresStore struct {
	conn   *Connection
	logger *slog.Logger
}

var _ Store = (*postgresStore)(nil)

// NewPostgresStore returns a Store backed by the given connection.
func NewPostgresStore(conn *Connection, logger *slog.Logger) (Store, error) {
	if conn == nil {
		return nil, errors.New("store: connection cannot be nil")
	}

	return &postgresStore{conn: conn, logger: logger}, nil
}

func (s *postgresStore) InsertIfAbsent(ctx context.Context, e events.Event) (bool, error) {
	if e.Topic == "" || e.EventID == "" {
		return false, ErrNilEvent
	}

	var payload []byte

	if e.Payload != nil {
		encoded, err := json.Marshal(e.Payload)
		if err != nil {
			return false, fmt.Errorf("%w: encoding payload: %v", ErrTransient, err)
		}

		payload = encoded
	}

	const query = `
		INSERT INTO processed_events (topic, event_id, timestamp, source, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT uq_topic_event_id DO NOTHING
	`

	result, err := s.conn.ExecContext(ctx, query, e.Topic, e.EventID, e.Timestamp, nullableString(e.Source), nullableJSON(payload))
	if err != nil {
		if isDatabaseConnectionError(err) {
			s.logger.Error("store: connection lost during insert", slog.String("error", err.Error()))
		}

		return false, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	return rows > 0, nil
}

func (s *postgresStore) CountEvents(ctx context.Context) (int64, error) {
	var count int64

	const query = `SELECT COUNT(*) FROM processed_events`

	if err := s.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting events: %v", ErrTransient, err)
	}

	return count, nil
}

func (s *postgresStore) ListEvents(ctx context.Context, topic string, limit int) ([]events.ProcessedEvent, error) {
	if limit < 0 {
		limit = defaultListLimit
	}

	var (
		rows *sql.Rows
		err  error
	)

	if topic != "" {
		const query = `
			SELECT id, topic, event_id, timestamp, source, payload, created_at
			FROM processed_events
			WHERE topic = $1
			ORDER BY id DESC
			LIMIT $2
		`
		rows, err = s.conn.QueryContext(ctx, query, topic, limit)
	} else {
		const query = `
			SELECT id, topic, event_id, timestamp, source, payload, created_at
			FROM processed_events
			ORDER BY id DESC
			LIMIT $1
		`
		rows, err = s.conn.QueryContext(ctx, query, limit)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: listing events: %v", ErrTransient, err)
	}

	defer func() { _ = rows.Close() }()

	result := make([]events.ProcessedEvent, 0, limit)

	for rows.Next() {
		var (
			pe         events.ProcessedEvent
			source     sql.NullString
			rawPayload []byte
		)

		if err := rows.Scan(&pe.ID, &pe.Topic, &pe.EventID, &pe.Timestamp, &source, &rawPayload, &pe.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning event row: %v", ErrTransient, err)
		}

		pe.Source = source.String

		if len(rawPayload) > 0 {
			var payload any

			if err := json.Unmarshal(rawPayload, &payload); err != nil {
				return nil, fmt.Errorf("%w: decoding stored payload: %v", ErrTransient, err)
			}

			pe.Payload = payload
		}

		result = append(result, pe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating event rows: %v", ErrTransient, err)
	}

	return result, nil
}

func (s *postgresStore) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, s.conn.DB, s.logger)
}

func (s *postgresStore) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

func (s *postgresStore) Close() error {
	return s.conn.Close()
}

func nullableString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullableJSON(v []byte) any {
	if len(v) == 0 {
		return nil
	}

	return string(v)
}

// isDatabaseConnectionError reports whether err represents a catastrophic
// connection-level failure rather than an ordinary constraint violation.
// PostgreSQL class "08" is Connection Exception.
func isDatabaseConnectionError(err error) bool {
	var pqErr *pq.Error

	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.Canceled)
}
