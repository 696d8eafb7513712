package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"logwarden/core"
)

// ErrAlertNotFound is returned when an alert is not found in the sink
var ErrAlertNotFound = errors.New("alert not found in sink")

// Sink persists canonical events and alerts beyond the in-memory buffers.
// The buffers are the working set; this is the system of record for history.
type Sink struct {
	sqlite *SQLite
}

// NewSink creates a durable sink backed by the given SQLite database
func NewSink(sqlite *SQLite) *Sink {
	return &Sink{sqlite: sqlite}
}

// InsertEvent persists one canonical event
func (s *Sink) InsertEvent(ctx context.Context, event *core.Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	_, err = s.sqlite.DB.ExecContext(ctx,
		`INSERT INTO events (event_id, timestamp, level, source, message, ip_address,
			user_agent, status_code, response_time_ms, thread_name, logger_name, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Level.String(),
		event.Source,
		event.Message,
		event.IPAddress,
		event.UserAgent,
		event.StatusCode,
		event.ResponseTimeMs,
		event.ThreadName,
		event.LoggerName,
		string(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// InsertAlert persists one alert
func (s *Sink) InsertAlert(ctx context.Context, alert *core.Alert) error {
	related := strings.Join(alert.RelatedEvents, ",")

	_, err := s.sqlite.DB.ExecContext(ctx,
		`INSERT INTO alerts (alert_id, created_at, severity, type, message, source,
			risk_score, related_events, resolved, acknowledged, acknowledgment_required)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.AlertID,
		alert.CreatedAt.UTC().Format(time.RFC3339Nano),
		alert.Severity.String(),
		string(alert.Type),
		alert.Message,
		alert.Source,
		alert.RiskScore,
		related,
		boolToInt(alert.Resolved),
		boolToInt(alert.Acknowledged),
		boolToInt(alert.AcknowledgmentRequired),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// MarkAlertAcknowledged records an acknowledgment transition
func (s *Sink) MarkAlertAcknowledged(ctx context.Context, alert *core.Alert) error {
	var ackAt string
	if alert.AcknowledgedAt != nil {
		ackAt = alert.AcknowledgedAt.UTC().Format(time.RFC3339Nano)
	}

	res, err := s.sqlite.DB.ExecContext(ctx,
		`UPDATE alerts SET acknowledged = 1, acknowledged_by = ?, acknowledged_at = ? WHERE alert_id = ?`,
		alert.AcknowledgedBy, ackAt, alert.AlertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert acknowledged: %w", err)
	}
	return checkAffected(res)
}

// MarkAlertResolved records a resolution transition
func (s *Sink) MarkAlertResolved(ctx context.Context, alert *core.Alert) error {
	var resolvedAt string
	if alert.ResolvedAt != nil {
		resolvedAt = alert.ResolvedAt.UTC().Format(time.RFC3339Nano)
	}

	res, err := s.sqlite.DB.ExecContext(ctx,
		`UPDATE alerts SET resolved = 1, resolved_by = ?, resolved_at = ?, resolution_notes = ? WHERE alert_id = ?`,
		alert.ResolvedBy, resolvedAt, alert.ResolutionNotes, alert.AlertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert resolved: %w", err)
	}
	return checkAffected(res)
}

// EventCount returns the total number of persisted events
func (s *Sink) EventCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.sqlite.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// AlertCount returns the total number of persisted alerts
func (s *Sink) AlertCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.sqlite.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
