package events

import (
	"errors"
	"testing"
)

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr error
	}{
		{
			name:    "valid, minimal",
			event:   Event{Topic: "t", EventID: "e1", Timestamp: "2025-01-01T00:00:00"},
			wantErr: nil,
		},
		{
			name: "valid, with source and payload",
			event: Event{
				Topic: "t", EventID: "e1", Timestamp: "2025-01-01T00:00:00",
				Source: "publisher-service", Payload: map[string]any{"amount": 10},
			},
			wantErr: nil,
		},
		{
			name:    "missing topic",
			event:   Event{EventID: "e1", Timestamp: "2025-01-01T00:00:00"},
			wantErr: ErrMissingTopic,
		},
		{
			name:    "missing event_id",
			event:   Event{Topic: "t", Timestamp: "2025-01-01T00:00:00"},
			wantErr: ErrMissingEventID,
		},
		{
			name:    "missing timestamp",
			event:   Event{Topic: "t", EventID: "e1"},
			wantErr: ErrMissingTimestamp,
		},
		{
			name:    "malformed timestamp",
			event:   Event{Topic: "t", EventID: "e1", Timestamp: "not-a-timestamp"},
			wantErr: ErrInvalidTimestamp,
		},
		{
			name:    "empty event",
			event:   Event{},
			wantErr: ErrMissingTopic,
		},
	}

	v := NewValidator()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.event)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
