package ingest

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"logwarden/core"
	"logwarden/metrics"
)

// Format identifies which detector matched a raw line
type Format string

const (
	FormatAccess   Format = "access"
	FormatAppLog   Format = "applog"
	FormatJSON     Format = "json"
	FormatFallback Format = "fallback"
)

// Access log (combined format): ip ident user [timestamp] "method url proto" status size "referer" "user-agent"
var accessLogPattern = regexp.MustCompile(
	`^(\S+) \S+ \S+ \[([^\]]+)\] "(\S+) (\S+) (\S+)" (\d+) (\S+) "([^"]*)" "([^"]*)"$`,
)

// Application log: timestamp [thread] LEVEL logger - message
var appLogPattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3}) \[(\w+)\] (\w+) (\S+) - (.+)$`,
)

const (
	accessTimeLayout = "02/Jan/2006:15:04:05 -0700"
	appLogTimeLayout = "2006-01-02 15:04:05,000"
)

var jsonTimeLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	time.RFC3339Nano,
	time.RFC3339,
}

// Normalize parses one raw log line into a canonical event. It returns nil
// only for a blank or whitespace-only line; malformed content degrades to a
// generic event rather than failing. Detectors run in fixed priority order
// and the first match wins.
func Normalize(rawLine, sourceLabel string) *core.Event {
	if strings.TrimSpace(rawLine) == "" {
		return nil
	}

	if m := accessLogPattern.FindStringSubmatch(rawLine); m != nil {
		metrics.LinesNormalized.WithLabelValues(string(FormatAccess)).Inc()
		return parseAccessLine(m, sourceLabel)
	}

	if m := appLogPattern.FindStringSubmatch(rawLine); m != nil {
		metrics.LinesNormalized.WithLabelValues(string(FormatAppLog)).Inc()
		return parseAppLogLine(m, sourceLabel)
	}

	if event := parseJSONLine(rawLine, sourceLabel); event != nil {
		metrics.LinesNormalized.WithLabelValues(string(FormatJSON)).Inc()
		return event
	}

	metrics.LinesNormalized.WithLabelValues(string(FormatFallback)).Inc()
	return genericEvent(rawLine, sourceLabel)
}

func parseAccessLine(m []string, source string) *core.Event {
	event := core.NewEvent()
	event.Source = source
	event.IPAddress = m[1]
	event.Timestamp = parseTimestamp(m[2], accessTimeLayout)
	event.Message = m[3] + " " + m[4] + " " + m[5]
	event.UserAgent = m[9]

	status, err := strconv.Atoi(m[6])
	if err == nil {
		event.StatusCode = status
	}
	switch {
	case status >= 500:
		event.Level = core.LevelError
	case status >= 400:
		event.Level = core.LevelWarning
	default:
		event.Level = core.LevelInfo
	}

	if size, err := strconv.Atoi(m[7]); err == nil {
		event.Metadata["response_size"] = size
	}
	if m[8] != "" && m[8] != "-" {
		event.Metadata["referer"] = m[8]
	}
	return event
}

func parseAppLogLine(m []string, source string) *core.Event {
	event := core.NewEvent()
	event.Timestamp = parseTimestamp(m[1], appLogTimeLayout)
	event.ThreadName = m[2]
	event.Level = CanonicalLevel(m[3])
	event.LoggerName = m[4]
	event.Source = source
	event.Message = m[5]
	return event
}

// jsonLine is the minimal shape a structured JSON log line must expose
type jsonLine struct {
	Timestamp      string `json:"timestamp"`
	Level          string `json:"level"`
	Message        string `json:"message"`
	IPAddress      string `json:"ip_address"`
	UserAgent      string `json:"user_agent"`
	StatusCode     int    `json:"status_code"`
	ResponseTimeMs int    `json:"response_time_ms"`
}

func parseJSONLine(raw, source string) *core.Event {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil
	}

	var line jsonLine
	if err := json.Unmarshal([]byte(trimmed), &line); err != nil {
		return nil
	}
	if line.Timestamp == "" || line.Level == "" || line.Message == "" {
		return nil
	}

	event := core.NewEvent()
	event.Source = source
	event.Message = line.Message
	event.Level = CanonicalLevel(line.Level)
	event.IPAddress = line.IPAddress
	event.UserAgent = line.UserAgent
	event.StatusCode = line.StatusCode
	event.ResponseTimeMs = line.ResponseTimeMs

	event.Timestamp = time.Now().UTC()
	for _, layout := range jsonTimeLayouts {
		if ts, err := time.Parse(layout, line.Timestamp); err == nil {
			event.Timestamp = ts
			break
		}
	}

	// Extra keys land in metadata so nothing the producer sent is dropped
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
		for k, v := range fields {
			switch k {
			case "timestamp", "level", "message", "ip_address", "user_agent", "status_code", "response_time_ms":
			default:
				event.Metadata[k] = v
			}
		}
	}
	return event
}

func genericEvent(raw, source string) *core.Event {
	event := core.NewEvent()
	event.Source = source
	event.Message = raw
	return event
}

// parseTimestamp parses with the given layout, falling back to ingestion
// time on failure. Parsing never aborts the line.
func parseTimestamp(value, layout string) time.Time {
	if ts, err := time.Parse(layout, value); err == nil {
		return ts
	}
	return time.Now().UTC()
}

// CanonicalLevel maps a source-specific level token into the canonical set.
// Matching is case-insensitive containment; brackets and parens are stripped
// first. FATAL/CRIT are checked before ERR so "CRITICAL" does not map to
// ERROR. Unrecognized tokens default to INFO.
func CanonicalLevel(token string) core.Level {
	cleaned := strings.ToUpper(strings.Trim(token, "[]() \t"))
	switch {
	case strings.Contains(cleaned, "FATAL"), strings.Contains(cleaned, "CRIT"):
		return core.LevelCritical
	case strings.Contains(cleaned, "ERR"):
		return core.LevelError
	case strings.Contains(cleaned, "WARN"):
		return core.LevelWarning
	case strings.Contains(cleaned, "DEBUG"):
		return core.LevelDebug
	case strings.Contains(cleaned, "INFO"):
		return core.LevelInfo
	default:
		return core.LevelInfo
	}
}
