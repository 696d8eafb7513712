package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"logwarden/metrics"
)

// DefaultAlertCapacity is the default bound on the in-memory alert buffer
const DefaultAlertCapacity = 100

// defaultLockTimeout bounds how long a synchronous lifecycle call waits for
// the store lock before returning ErrBusy.
const defaultLockTimeout = 2 * time.Second

// AlertNotifier is the boundary the store invokes for high-severity alerts.
// Delivery mechanics are the implementation's problem; the store only decides
// when to call it.
type AlertNotifier interface {
	Notify(ctx context.Context, alert *Alert) error
}

// AlertSink persists alerts beyond the bounded buffer. Sink failures are
// logged and never fail the triggering operation.
type AlertSink interface {
	InsertAlert(ctx context.Context, alert *Alert) error
	MarkAlertAcknowledged(ctx context.Context, alert *Alert) error
	MarkAlertResolved(ctx context.Context, alert *Alert) error
}

// AlertFilter narrows an alert listing. Nil pointer fields match everything.
type AlertFilter struct {
	Severity Severity
	Type     AlertType
	Resolved *bool
	Limit    int
}

// AlertStore is a bounded, concurrently-writable buffer of alerts with
// lifecycle transitions. It is a working-set cache, not the system of record:
// evicted alerts survive only in the durable sink.
type AlertStore struct {
	sem         chan struct{} // capacity-1 semaphore, supports timed acquisition
	alerts      []*Alert
	capacity    int
	lockTimeout time.Duration
	notifier    AlertNotifier
	sink        AlertSink
	logger      *zap.SugaredLogger
}

// NewAlertStore creates an alert store with the given capacity.
// notifier and sink may be nil.
func NewAlertStore(capacity int, notifier AlertNotifier, sink AlertSink, logger *zap.SugaredLogger) *AlertStore {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &AlertStore{
		sem:         make(chan struct{}, 1),
		alerts:      make([]*Alert, 0, capacity),
		capacity:    capacity,
		lockTimeout: defaultLockTimeout,
		notifier:    notifier,
		sink:        sink,
		logger:      logger,
	}
}

// acquire takes the store lock, waiting at most the configured timeout
func (s *AlertStore) acquire() error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-time.After(s.lockTimeout):
		return ErrBusy
	}
}

func (s *AlertStore) release() {
	<-s.sem
}

// Create builds a new open alert, buffers it, persists it best-effort and
// asynchronously notifies for HIGH/CRITICAL severities. Notification or sink
// failure never rolls back creation.
func (s *AlertStore) Create(alertType AlertType, severity Severity, message, source string, relatedEvents []string) (*Alert, error) {
	alert := NewAlert(alertType, severity, message, source, relatedEvents)

	if err := s.acquire(); err != nil {
		return nil, err
	}
	s.alerts = append(s.alerts, alert)
	if len(s.alerts) > s.capacity {
		over := len(s.alerts) - s.capacity
		s.alerts = append(s.alerts[:0:0], s.alerts[over:]...)
	}
	s.release()

	metrics.AlertsGenerated.WithLabelValues(severity.String()).Inc()
	s.logger.Infow("Created alert",
		"alert_id", alert.AlertID,
		"type", alert.Type,
		"severity", alert.Severity,
		"source", alert.Source)

	s.persist(func(ctx context.Context) error { return s.sink.InsertAlert(ctx, alert.Clone()) })

	if alert.Severity == SeverityCritical || alert.Severity == SeverityHigh {
		s.dispatchNotification(alert.Clone())
	}

	return alert.Clone(), nil
}

// Acknowledge marks the alert acknowledged by the given actor
func (s *AlertStore) Acknowledge(id, by string) (*Alert, error) {
	return s.transition(id, func(a *Alert) error { return a.Acknowledge(by) },
		func(ctx context.Context, a *Alert) error { return s.sink.MarkAlertAcknowledged(ctx, a) })
}

// Resolve marks the alert resolved by the given actor with optional notes
func (s *AlertStore) Resolve(id, by, notes string) (*Alert, error) {
	return s.transition(id, func(a *Alert) error { return a.Resolve(by, notes) },
		func(ctx context.Context, a *Alert) error { return s.sink.MarkAlertResolved(ctx, a) })
}

func (s *AlertStore) transition(id string, apply func(*Alert) error, persist func(context.Context, *Alert) error) (*Alert, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	for _, a := range s.alerts {
		if a.AlertID != id {
			continue
		}
		if err := apply(a); err != nil {
			return nil, err
		}
		snapshot := a.Clone()
		s.persist(func(ctx context.Context) error { return persist(ctx, snapshot) })
		return snapshot, nil
	}
	return nil, ErrAlertNotFound
}

// Get returns a copy of the alert with the given id
func (s *AlertStore) Get(id string) (*Alert, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	for _, a := range s.alerts {
		if a.AlertID == id {
			return a.Clone(), nil
		}
	}
	return nil, ErrAlertNotFound
}

// List returns alerts matching the filter, newest first
func (s *AlertStore) List(filter AlertFilter) []*Alert {
	if err := s.acquire(); err != nil {
		return nil
	}
	defer s.release()

	limit := filter.Limit
	if limit <= 0 {
		limit = len(s.alerts)
	}

	out := make([]*Alert, 0)
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		a := s.alerts[i]
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.Resolved != nil && a.Resolved != *filter.Resolved {
			continue
		}
		out = append(out, a.Clone())
	}
	return out
}

// CountUnresolved returns the number of buffered unresolved alerts
func (s *AlertStore) CountUnresolved() int {
	if err := s.acquire(); err != nil {
		return 0
	}
	defer s.release()

	count := 0
	for _, a := range s.alerts {
		if !a.Resolved {
			count++
		}
	}
	return count
}

// CountCriticalUnresolved returns the number of buffered unresolved CRITICAL alerts
func (s *AlertStore) CountCriticalUnresolved() int {
	if err := s.acquire(); err != nil {
		return 0
	}
	defer s.release()

	count := 0
	for _, a := range s.alerts {
		if !a.Resolved && a.Severity == SeverityCritical {
			count++
		}
	}
	return count
}

// persist runs a sink operation in the background, logging failures
func (s *AlertStore) persist(op func(context.Context) error) {
	if s.sink == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorw("Alert sink panicked", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := op(ctx); err != nil {
			metrics.SinkFailures.WithLabelValues("alert").Inc()
			s.logger.Warnw("Alert sink write failed", "error", err)
		}
	}()
}

// dispatchNotification invokes the notifier boundary off the caller's path
func (s *AlertStore) dispatchNotification(alert *Alert) {
	if s.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorw("Notifier panicked", "alert_id", alert.AlertID, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, alert); err != nil {
			metrics.NotificationFailures.Inc()
			s.logger.Warnw("Alert notification failed",
				"alert_id", alert.AlertID,
				"severity", alert.Severity,
				"error", err)
		}
	}()
}
