package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"logwarden/core"
	"logwarden/detect"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	logger := zap.NewNop().Sugar()

	window := core.NewEventWindow(core.DefaultWindowCapacity)
	alerts := core.NewAlertStore(core.DefaultAlertCapacity, nil, nil, logger)
	classifier, err := detect.NewClassifier()
	require.NoError(t, err)
	engine := detect.NewEngine(window, classifier, detect.DefaultEngineConfig(), logger)
	pool := core.NewWorkerPool(context.Background(), 2, 32, "test", logger)

	return NewPipeline(window, alerts, classifier, engine, nil, pool, Options{}, logger)
}

func TestPipeline_Ingest(t *testing.T) {
	p := newTestPipeline(t)

	event := p.Ingest("2023-10-10 14:23:05,123 [main] ERROR svc - Database down", "app")
	require.NotNil(t, event)
	assert.Equal(t, core.LevelError, event.Level)
	assert.Equal(t, "Database down", event.Message)
	assert.Equal(t, 1, p.window.Len())
}

func TestPipeline_IngestBlankLine(t *testing.T) {
	p := newTestPipeline(t)

	assert.Nil(t, p.Ingest("   ", "app"))
	assert.Equal(t, 0, p.window.Len())
}

func TestPipeline_IngestEventFillsIdentity(t *testing.T) {
	p := newTestPipeline(t)

	event := p.IngestEvent(&core.Event{
		Source:  "api",
		Message: "hello",
		Level:   core.Level("warn"),
	})
	require.NotNil(t, event)

	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
	assert.NotNil(t, event.Metadata)
	assert.Equal(t, core.LevelWarning, event.Level)
	assert.Equal(t, 1, p.window.Len())
}

func TestPipeline_IngestEventKeepsCallerFields(t *testing.T) {
	p := newTestPipeline(t)

	ts := time.Date(2023, 10, 10, 12, 0, 0, 0, time.UTC)
	event := p.IngestEvent(&core.Event{
		EventID:   "fixed-id",
		Timestamp: ts,
		Source:    "api",
		Message:   "hello",
		Level:     core.LevelDebug,
	})
	require.NotNil(t, event)

	assert.Equal(t, "fixed-id", event.EventID)
	assert.True(t, event.Timestamp.Equal(ts))
	assert.Equal(t, core.LevelDebug, event.Level)
}

func TestPipeline_IngestEventNil(t *testing.T) {
	p := newTestPipeline(t)
	assert.Nil(t, p.IngestEvent(nil))
}

func TestPipeline_ProcessFile(t *testing.T) {
	p := newTestPipeline(t)

	input := strings.Join([]string{
		"first line",
		"",
		"second line",
		"third line",
	}, "\n")

	processed, err := p.ProcessFile(context.Background(), strings.NewReader(input), "upload")
	require.NoError(t, err)
	assert.Equal(t, 3, processed)
	assert.Equal(t, 3, p.window.Len())
}

func TestPipeline_ProcessFileCancelledKeepsPrefix(t *testing.T) {
	p := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processed, err := p.ProcessFile(ctx, strings.NewReader("one\ntwo\nthree"), "upload")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, processed, p.window.Len())
}

func TestPipeline_Search(t *testing.T) {
	p := newTestPipeline(t)
	p.Ingest("user alice logged in", "auth")
	p.Ingest("user bob logged in", "auth")

	results := p.Search(core.SearchFilter{Text: "alice"})
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "alice")
}

func TestPipeline_SweepCreatesAlerts(t *testing.T) {
	p := newTestPipeline(t)

	for i := 0; i < 5; i++ {
		event := core.NewEvent()
		event.Source = "auth-service"
		event.IPAddress = "10.0.0.5"
		event.Message = "Authentication failed for user: admin"
		p.IngestEvent(event)
	}

	created := p.Sweep()
	require.Len(t, created, 1)
	assert.Equal(t, core.AlertTypeBruteForce, created[0].Type)
	assert.Equal(t, core.SeverityCritical, created[0].Severity)
	assert.Len(t, created[0].RelatedEvents, 5)

	alerts := p.ListAlerts(core.AlertFilter{})
	require.Len(t, alerts, 1)
	assert.Equal(t, created[0].AlertID, alerts[0].AlertID)
}

func TestPipeline_AlertLifecycleThroughFacade(t *testing.T) {
	p := newTestPipeline(t)

	for i := 0; i < 5; i++ {
		event := core.NewEvent()
		event.Source = "auth-service"
		event.IPAddress = "10.0.0.5"
		event.Message = "Authentication failed for user: admin"
		p.IngestEvent(event)
	}
	created := p.Sweep()
	require.Len(t, created, 1)
	id := created[0].AlertID

	acked, err := p.AcknowledgeAlert(id, "analyst")
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)

	resolved, err := p.ResolveAlert(id, "analyst", "blocked at firewall")
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)

	_, err = p.ResolveAlert(id, "analyst", "again")
	assert.ErrorIs(t, err, core.ErrAlertResolved)
}

func TestPipeline_Classify(t *testing.T) {
	p := newTestPipeline(t)

	event := core.NewEvent()
	event.Message = "SELECT * FROM users WHERE id=1"
	assert.Equal(t, core.ThreatHigh, p.Classify(event))
}

func TestPipeline_Stats(t *testing.T) {
	p := newTestPipeline(t)

	p.Ingest("2023-10-10 14:23:05,123 [main] ERROR svc - broken", "app")
	p.Ingest("plain line", "app")
	p.Ingest("another plain line", "app")

	stats := p.Stats()
	assert.Equal(t, int64(3), stats.TotalEvents)
	assert.Equal(t, 3, stats.WindowSize)
	assert.Equal(t, int64(1), stats.CountsByLevel["ERROR"])
	assert.Equal(t, int64(2), stats.CountsByLevel["INFO"])
	assert.Equal(t, 0, stats.UnresolvedAlertCount)
	assert.Equal(t, 0, stats.CriticalAlertCount)
}

func TestPipeline_StartAndStop(t *testing.T) {
	logger := zap.NewNop().Sugar()
	window := core.NewEventWindow(100)
	alerts := core.NewAlertStore(10, nil, nil, logger)
	classifier, err := detect.NewClassifier()
	require.NoError(t, err)
	engine := detect.NewEngine(window, classifier, detect.DefaultEngineConfig(), logger)
	pool := core.NewWorkerPool(context.Background(), 2, 32, "test", logger)

	p := NewPipeline(window, alerts, classifier, engine, nil, pool, Options{
		SweepInterval:   20 * time.Millisecond,
		SamplerEnabled:  true,
		SamplerInterval: 20 * time.Millisecond,
	}, logger)

	p.Start()
	// idempotent
	p.Start()

	assert.Eventually(t, func() bool {
		return window.Len() > 0
	}, 2*time.Second, 10*time.Millisecond)

	p.Stop()
	p.Stop()
}
