package detect

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"logwarden/core"
)

func newTestEngine(t *testing.T, window *core.EventWindow, cfg EngineConfig) *Engine {
	t.Helper()
	classifier, err := NewClassifier()
	require.NoError(t, err)
	return NewEngine(window, classifier, cfg, zap.NewNop().Sugar())
}

func authFailureEvent(ip string) *core.Event {
	e := core.NewEvent()
	e.Level = core.LevelWarning
	e.Source = "auth-service"
	e.IPAddress = ip
	e.Message = "Authentication failed for user: admin"
	return e
}

func TestEngine_DetectBruteForce(t *testing.T) {
	window := core.NewEventWindow(100)
	engine := newTestEngine(t, window, DefaultEngineConfig())

	// five failures from one source, four from another
	for i := 0; i < 5; i++ {
		window.Append(authFailureEvent("10.0.0.5"))
	}
	for i := 0; i < 4; i++ {
		window.Append(authFailureEvent("10.0.0.9"))
	}

	requests := engine.Sweep()
	require.Len(t, requests, 1)

	req := requests[0]
	assert.Equal(t, core.AlertTypeBruteForce, req.Type)
	assert.Equal(t, core.SeverityCritical, req.Severity)
	assert.Equal(t, "10.0.0.5", req.Identifier)
	assert.Equal(t, "Multiple failed login attempts from 10.0.0.5 (5 attempts)", req.Message)
	assert.Len(t, req.RelatedEvents, 5)
}

func TestEngine_BruteForceIdentifierFromMessage(t *testing.T) {
	window := core.NewEventWindow(100)
	engine := newTestEngine(t, window, DefaultEngineConfig())

	for i := 0; i < 5; i++ {
		e := core.NewEvent()
		e.Source = "auth-service"
		e.Message = "Login failed from 172.16.4.20 invalid credentials"
		window.Append(e)
	}

	requests := engine.Sweep()
	require.Len(t, requests, 1)
	assert.Equal(t, "172.16.4.20", requests[0].Identifier)
}

func TestEngine_BruteForceIdentifierFallsBackToSource(t *testing.T) {
	window := core.NewEventWindow(100)
	engine := newTestEngine(t, window, DefaultEngineConfig())

	for i := 0; i < 5; i++ {
		e := core.NewEvent()
		e.Source = "vpn-gateway"
		e.Message = "Authentication failed: bad credential"
		window.Append(e)
	}

	requests := engine.Sweep()
	require.Len(t, requests, 1)
	assert.Equal(t, "vpn-gateway", requests[0].Identifier)
}

func TestEngine_DetectInjectionTypes(t *testing.T) {
	testCases := []struct {
		name     string
		message  string
		expected core.AlertType
	}{
		{"sql injection", "GET /search?q=1 UNION SELECT password FROM users", core.AlertTypeSQLInjection},
		{"xss", "POST /comment body=<img onerror=steal()>", core.AlertTypeXSS},
		{"directory traversal", "GET /files?path=../../etc/shadow", core.AlertTypeDirectoryTraversal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			window := core.NewEventWindow(100)
			engine := newTestEngine(t, window, DefaultEngineConfig())

			e := core.NewEvent()
			e.Source = "nginx"
			e.IPAddress = "203.0.113.7"
			e.Message = tc.message
			window.Append(e)

			requests := engine.Sweep()
			require.Len(t, requests, 1)
			assert.Equal(t, tc.expected, requests[0].Type)
			assert.Equal(t, core.SeverityHigh, requests[0].Severity)
			assert.Equal(t, []string{e.EventID}, requests[0].RelatedEvents)
		})
	}
}

func TestEngine_InjectionOneRequestPerEvent(t *testing.T) {
	window := core.NewEventWindow(100)
	engine := newTestEngine(t, window, DefaultEngineConfig())

	for i := 0; i < 3; i++ {
		e := core.NewEvent()
		e.Source = "nginx"
		e.IPAddress = fmt.Sprintf("198.51.100.%d", i)
		e.Message = "GET /q?id=1 UNION SELECT * FROM users"
		window.Append(e)
	}

	requests := engine.Sweep()
	assert.Len(t, requests, 3)
}

func TestEngine_DetectAnomalyRate(t *testing.T) {
	window := core.NewEventWindow(100)
	engine := newTestEngine(t, window, EngineConfig{AnomalyThreshold: 10})

	// 11 errors crosses the threshold; messages avoid other signature groups
	for i := 0; i < 11; i++ {
		e := core.NewEvent()
		e.Level = core.LevelError
		e.Source = "app"
		e.Message = fmt.Sprintf("request %d bounced", i)
		window.Append(e)
	}

	requests := engine.Sweep()
	require.Len(t, requests, 1)

	req := requests[0]
	assert.Equal(t, core.AlertTypeSystemAnomaly, req.Type)
	assert.Equal(t, core.SeverityMedium, req.Severity)
	assert.Equal(t, "High error rate detected: 11 errors in recent events", req.Message)
	assert.Len(t, req.RelatedEvents, 11)
}

func TestEngine_AnomalyAtThresholdDoesNotFire(t *testing.T) {
	window := core.NewEventWindow(100)
	engine := newTestEngine(t, window, EngineConfig{AnomalyThreshold: 10})

	for i := 0; i < 10; i++ {
		e := core.NewEvent()
		e.Level = core.LevelError
		e.Source = "app"
		e.Message = "request bounced"
		window.Append(e)
	}

	assert.Empty(t, engine.Sweep())
}

func TestEngine_CooldownSuppressesRepeats(t *testing.T) {
	window := core.NewEventWindow(100)
	engine := newTestEngine(t, window, DefaultEngineConfig())

	for i := 0; i < 6; i++ {
		window.Append(authFailureEvent("10.0.0.5"))
	}

	first := engine.Sweep()
	require.Len(t, first, 1)

	// same events still in the window; the repeat is suppressed
	second := engine.Sweep()
	assert.Empty(t, second)

	// a different identifier is not suppressed
	for i := 0; i < 6; i++ {
		window.Append(authFailureEvent("10.0.0.77"))
	}
	third := engine.Sweep()
	require.Len(t, third, 1)
	assert.Equal(t, "10.0.0.77", third[0].Identifier)
}

func TestEngine_CooldownExpires(t *testing.T) {
	window := core.NewEventWindow(100)
	cfg := DefaultEngineConfig()
	cfg.DedupCooldown = 50 * time.Millisecond
	engine := newTestEngine(t, window, cfg)

	for i := 0; i < 6; i++ {
		window.Append(authFailureEvent("10.0.0.5"))
	}

	require.Len(t, engine.Sweep(), 1)
	assert.Empty(t, engine.Sweep())

	assert.Eventually(t, func() bool {
		return len(engine.Sweep()) == 1
	}, 2*time.Second, 25*time.Millisecond)
}

func TestEngine_SweepSizeLimitsScan(t *testing.T) {
	window := core.NewEventWindow(200)
	cfg := DefaultEngineConfig()
	cfg.SweepSize = 10
	engine := newTestEngine(t, window, cfg)

	// old failures are pushed outside the sweep horizon by newer noise
	for i := 0; i < 5; i++ {
		window.Append(authFailureEvent("10.0.0.5"))
	}
	for i := 0; i < 10; i++ {
		e := core.NewEvent()
		e.Source = "app"
		e.Message = "routine heartbeat"
		window.Append(e)
	}

	assert.Empty(t, engine.Sweep())
}

func TestEngine_EmptyWindow(t *testing.T) {
	window := core.NewEventWindow(100)
	engine := newTestEngine(t, window, DefaultEngineConfig())

	assert.Empty(t, engine.Sweep())
}
