package events

import "errors"

// Sentinel errors for event validation. Usable with errors.Is().
var (
	ErrMissingTopic     = errors.New("topic is required")
	ErrMissingEventID   = errors.New("event_id is required")
	ErrMissingTimestamp = errors.New("timestamp is required")
	ErrInvalidTimestamp = errors.New("timestamp is not a valid ISO-8601 date-time")
)

// Validator validates Event values submitted to /publish. It holds no state
// and is safe for concurrent use.
type Validator struct{}

// NewValidator returns a ready-to-use Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that topic, event_id, and timestamp are present and that
// timestamp parses as an ISO-8601 date-time, with or without a UTC offset
// (see Event.ParseTimestamp). source and payload are always optional.
func (v *Validator) Validate(e Event) error {
	if e.Topic == "" {
		return ErrMissingTopic
	}

	if e.EventID == "" {
		return ErrMissingEventID
	}

	if e.Timestamp == "" {
		return ErrMissingTimestamp
	}

	if _, err := e.ParseTimestamp(); err != nil {
		return ErrInvalidTimestamp
	}

	return nil
}
