package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is the canonical representation of one log line, independent of the
// source format it arrived in. Events are created by the normalizer and are
// immutable afterwards.
type Event struct {
	EventID        string                 `json:"event_id"`
	Timestamp      time.Time              `json:"timestamp"`
	Level          Level                  `json:"level"`
	Source         string                 `json:"source"`
	Message        string                 `json:"message"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	UserAgent      string                 `json:"user_agent,omitempty"`
	StatusCode     int                    `json:"status_code,omitempty"`
	ResponseTimeMs int                    `json:"response_time_ms,omitempty"`
	ThreadName     string                 `json:"thread_name,omitempty"`
	LoggerName     string                 `json:"logger_name,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent creates a new Event with a generated UUID and the current time
func NewEvent() *Event {
	return &Event{
		EventID:   uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Level:     LevelInfo,
		Metadata:  make(map[string]interface{}),
	}
}
