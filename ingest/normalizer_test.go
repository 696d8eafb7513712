package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logwarden/core"
)

func TestNormalize_BlankLineReturnsNil(t *testing.T) {
	assert.Nil(t, Normalize("", "src"))
	assert.Nil(t, Normalize("   \t  ", "src"))
}

func TestNormalize_AccessLog(t *testing.T) {
	line := `192.168.1.50 - - [10/Oct/2023:13:55:36 -0700] "GET /admin/login.php HTTP/1.1" 404 1234 "http://example.com/" "Mozilla/5.0"`

	event := Normalize(line, "nginx")
	require.NotNil(t, event)

	assert.Equal(t, "nginx", event.Source)
	assert.Equal(t, "192.168.1.50", event.IPAddress)
	assert.Equal(t, "GET /admin/login.php HTTP/1.1", event.Message)
	assert.Equal(t, 404, event.StatusCode)
	assert.Equal(t, "Mozilla/5.0", event.UserAgent)
	assert.Equal(t, core.LevelWarning, event.Level)
	assert.Equal(t, 1234, event.Metadata["response_size"])
	assert.Equal(t, "http://example.com/", event.Metadata["referer"])

	expected := time.Date(2023, time.October, 10, 13, 55, 36, 0, time.FixedZone("", -7*3600))
	assert.True(t, event.Timestamp.Equal(expected))
}

func TestNormalize_AccessLogLevelFromStatus(t *testing.T) {
	testCases := []struct {
		name   string
		status string
		level  core.Level
	}{
		{"2xx is info", "200", core.LevelInfo},
		{"3xx is info", "301", core.LevelInfo},
		{"4xx is warning", "403", core.LevelWarning},
		{"5xx is error", "502", core.LevelError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			line := `10.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET / HTTP/1.1" ` + tc.status + ` 100 "-" "curl/8.0"`
			event := Normalize(line, "nginx")
			require.NotNil(t, event)
			assert.Equal(t, tc.level, event.Level)
		})
	}
}

func TestNormalize_AccessLogSkipsDashReferer(t *testing.T) {
	line := `10.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET / HTTP/1.1" 200 100 "-" "curl/8.0"`
	event := Normalize(line, "nginx")
	require.NotNil(t, event)

	_, ok := event.Metadata["referer"]
	assert.False(t, ok)
}

func TestNormalize_AppLog(t *testing.T) {
	line := `2023-10-10 14:23:05,123 [main] ERROR com.example.Service - Database connection failed`

	event := Normalize(line, "application")
	require.NotNil(t, event)

	assert.Equal(t, core.LevelError, event.Level)
	assert.Equal(t, "main", event.ThreadName)
	assert.Equal(t, "com.example.Service", event.LoggerName)
	assert.Equal(t, "Database connection failed", event.Message)
	assert.Equal(t, "application", event.Source)

	expected := time.Date(2023, time.October, 10, 14, 23, 5, 123_000_000, time.UTC)
	assert.True(t, event.Timestamp.Equal(expected))
}

func TestNormalize_JSONLine(t *testing.T) {
	line := `{"timestamp":"2023-10-10T14:23:05.000Z","level":"warn","message":"slow request","ip_address":"10.1.2.3","status_code":200,"response_time_ms":6200,"request_id":"abc-123"}`

	event := Normalize(line, "api")
	require.NotNil(t, event)

	assert.Equal(t, core.LevelWarning, event.Level)
	assert.Equal(t, "slow request", event.Message)
	assert.Equal(t, "10.1.2.3", event.IPAddress)
	assert.Equal(t, 200, event.StatusCode)
	assert.Equal(t, 6200, event.ResponseTimeMs)
	assert.Equal(t, "abc-123", event.Metadata["request_id"])

	expected := time.Date(2023, time.October, 10, 14, 23, 5, 0, time.UTC)
	assert.True(t, event.Timestamp.Equal(expected))
}

func TestNormalize_JSONMissingRequiredKeysFallsBack(t *testing.T) {
	// valid JSON but no level/message, so it degrades to a generic event
	line := `{"timestamp":"2023-10-10T14:23:05.000Z","foo":"bar"}`

	event := Normalize(line, "api")
	require.NotNil(t, event)
	assert.Equal(t, line, event.Message)
	assert.Equal(t, core.LevelInfo, event.Level)
}

func TestNormalize_FallbackKeepsRawLine(t *testing.T) {
	line := "some completely unstructured text"

	event := Normalize(line, "unknown")
	require.NotNil(t, event)
	assert.Equal(t, line, event.Message)
	assert.Equal(t, core.LevelInfo, event.Level)
	assert.Equal(t, "unknown", event.Source)
	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestNormalize_MalformedTimestampFallsBackToNow(t *testing.T) {
	line := `10.0.0.1 - - [not-a-timestamp] "GET / HTTP/1.1" 200 100 "-" "curl/8.0"`

	before := time.Now().UTC()
	event := Normalize(line, "nginx")
	require.NotNil(t, event)

	assert.Equal(t, "GET / HTTP/1.1", event.Message)
	assert.False(t, event.Timestamp.Before(before.Add(-time.Second)))
}

func TestCanonicalLevel(t *testing.T) {
	testCases := []struct {
		token    string
		expected core.Level
	}{
		{"ERROR", core.LevelError},
		{"error", core.LevelError},
		{"ERR", core.LevelError},
		{"[ERROR]", core.LevelError},
		{"WARN", core.LevelWarning},
		{"WARNING", core.LevelWarning},
		{"FATAL", core.LevelCritical},
		{"CRITICAL", core.LevelCritical},
		{"CRIT", core.LevelCritical},
		{"DEBUG", core.LevelDebug},
		{"INFO", core.LevelInfo},
		{"(info)", core.LevelInfo},
		{"TRACE", core.LevelInfo},
		{"", core.LevelInfo},
		{"SEVERE_ERR", core.LevelError},
	}

	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			assert.Equal(t, tc.expected, CanonicalLevel(tc.token))
		})
	}
}
