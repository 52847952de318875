// Package events defines the wire-form Event submitted by clients and the
// ProcessedEvent entity it becomes once durably stored.
package events

import "time"

// Event is the immutable record submitted by a client to /publish and carried
// verbatim, as JSON, through the broker queue.
type Event struct {
	Topic     string `json:"topic"`
	EventID   string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// ProcessedEvent is an Event that has been durably persisted by a worker.
type ProcessedEvent struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	EventID   string    `json:"event_id"`
	Timestamp string    `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// isoLayouts are the ISO-8601 date-time forms this system accepts, tried in
// order. Clients are not required to include a UTC offset (the reference
// producer emits naive local timestamps), so RFC3339 alone is too strict.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses the Event's timestamp field as an ISO-8601 date-time,
// with or without a UTC offset. The timestamp is informational only, used for
// best-effort latency accounting; a naive timestamp is parsed in UTC.
func (e Event) ParseTimestamp() (time.Time, error) {
	var lastErr error

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, e.Timestamp); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, lastErr
}
