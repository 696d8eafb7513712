package core

import (
	"time"

	"github.com/google/uuid"
)

// Alert represents a detected condition requiring attention. Alerts carry
// their own resolution lifecycle: open → acknowledged → resolved, with
// acknowledgment optional. A resolved alert is terminal.
type Alert struct {
	AlertID   string    `json:"alert_id"`
	CreatedAt time.Time `json:"created_at"`
	Severity  Severity  `json:"severity"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`

	// RiskScore is derived from Severity at creation and never set directly
	RiskScore int `json:"risk_score"`

	// RelatedEvents holds the ids of the canonical events that contributed
	RelatedEvents []string `json:"related_events,omitempty"`

	Resolved        bool       `json:"resolved"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`

	Acknowledged           bool       `json:"acknowledged"`
	AcknowledgedBy         string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt         *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgmentRequired bool       `json:"acknowledgment_required"`
}

// NewAlert creates an open alert. RiskScore and AcknowledgmentRequired are
// computed here, once, from the severity.
func NewAlert(alertType AlertType, severity Severity, message, source string, relatedEvents []string) *Alert {
	events := make([]string, len(relatedEvents))
	copy(events, relatedEvents)

	return &Alert{
		AlertID:                uuid.New().String(),
		CreatedAt:              time.Now().UTC(),
		Severity:               severity,
		Type:                   alertType,
		Message:                message,
		Source:                 source,
		RiskScore:              RiskScore(severity),
		RelatedEvents:          events,
		AcknowledgmentRequired: severity == SeverityCritical || severity == SeverityHigh,
	}
}

// Acknowledge marks the alert acknowledged by the given actor.
// Fails with ErrAlertResolved if the alert is already resolved and with a
// ValidationError if the actor is empty. The alert is unchanged on failure.
func (a *Alert) Acknowledge(by string) error {
	if by == "" {
		return &ValidationError{Field: "acknowledged_by", Reason: "actor identity is required"}
	}
	if a.Resolved {
		return ErrAlertResolved
	}

	now := time.Now().UTC()
	a.Acknowledged = true
	a.AcknowledgedBy = by
	a.AcknowledgedAt = &now
	return nil
}

// Resolve marks the alert resolved by the given actor with optional notes.
// Resolution does not require a prior acknowledgment. Fails with
// ErrAlertResolved if already resolved; the alert is unchanged on failure.
func (a *Alert) Resolve(by, notes string) error {
	if by == "" {
		return &ValidationError{Field: "resolved_by", Reason: "actor identity is required"}
	}
	if a.Resolved {
		return ErrAlertResolved
	}

	now := time.Now().UTC()
	a.Resolved = true
	a.ResolvedBy = by
	a.ResolvedAt = &now
	a.ResolutionNotes = notes
	return nil
}

// Clone returns a deep copy so callers can hand alerts across goroutines
// without sharing mutable state with the store.
func (a *Alert) Clone() *Alert {
	dup := *a
	dup.RelatedEvents = make([]string, len(a.RelatedEvents))
	copy(dup.RelatedEvents, a.RelatedEvents)
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		dup.ResolvedAt = &t
	}
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		dup.AcknowledgedAt = &t
	}
	return &dup
}
