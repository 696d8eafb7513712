package detect

import (
	"fmt"
	"regexp"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"logwarden/core"
	"logwarden/metrics"
)

// AlertRequest is what a detector asks the alert store to create
type AlertRequest struct {
	Type          core.AlertType
	Severity      core.Severity
	Message       string
	Source        string
	Identifier    string
	RelatedEvents []string
}

// EngineConfig holds correlation engine tuning
type EngineConfig struct {
	// SweepSize is how many recent events each sweep inspects
	SweepSize int
	// BruteForceThreshold is the failed-auth count per identifier that trips an alert
	BruteForceThreshold int
	// AnomalyThreshold is the ERROR-level count above which a sweep flags an anomaly
	AnomalyThreshold int
	// DedupCooldown suppresses repeat alerts for the same (type, identifier)
	DedupCooldown time.Duration
	// DedupCacheSize bounds the suppression cache
	DedupCacheSize int
}

// DefaultEngineConfig returns the stock tuning
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SweepSize:           100,
		BruteForceThreshold: 5,
		AnomalyThreshold:    10,
		DedupCooldown:       10 * time.Minute,
		DedupCacheSize:      4096,
	}
}

// Engine periodically scans a snapshot of the event window with independent
// detectors and emits alert requests. Because consecutive sweeps rescan
// overlapping snapshots, a cooldown cache keyed by (type, identifier)
// suppresses duplicates so an ongoing condition does not cause an alert storm.
type Engine struct {
	window     *core.EventWindow
	classifier *Classifier
	cfg        EngineConfig
	seen       *expirable.LRU[string, time.Time]
	logger     *zap.SugaredLogger
}

var ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// NewEngine creates a correlation engine over the given window
func NewEngine(window *core.EventWindow, classifier *Classifier, cfg EngineConfig, logger *zap.SugaredLogger) *Engine {
	if cfg.SweepSize <= 0 {
		cfg.SweepSize = 100
	}
	if cfg.BruteForceThreshold <= 0 {
		cfg.BruteForceThreshold = 5
	}
	if cfg.AnomalyThreshold <= 0 {
		cfg.AnomalyThreshold = 10
	}
	if cfg.DedupCooldown <= 0 {
		cfg.DedupCooldown = 10 * time.Minute
	}
	if cfg.DedupCacheSize <= 0 {
		cfg.DedupCacheSize = 4096
	}

	return &Engine{
		window:     window,
		classifier: classifier,
		cfg:        cfg,
		seen:       expirable.NewLRU[string, time.Time](cfg.DedupCacheSize, nil, cfg.DedupCooldown),
		logger:     logger,
	}
}

// Sweep runs every detector over one snapshot of the window and returns the
// alert requests that survived cooldown deduplication.
func (e *Engine) Sweep() []AlertRequest {
	start := time.Now()
	snapshot := e.window.Snapshot(e.cfg.SweepSize)

	requests := make([]AlertRequest, 0)
	requests = append(requests, e.detectBruteForce(snapshot)...)
	requests = append(requests, e.detectInjection(snapshot)...)
	requests = append(requests, e.detectAnomalyRate(snapshot)...)

	emitted := requests[:0]
	for _, req := range requests {
		if e.suppress(req) {
			metrics.AlertsSuppressed.WithLabelValues(string(req.Type)).Inc()
			continue
		}
		emitted = append(emitted, req)
	}

	metrics.SweepsRun.Inc()
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if len(emitted) > 0 {
		e.logger.Infow("Correlation sweep emitted alerts",
			"events_scanned", len(snapshot),
			"requests", len(emitted))
	}
	return emitted
}

// detectBruteForce groups failed-auth events by identifier and flags any
// identifier at or above the threshold.
func (e *Engine) detectBruteForce(events []*core.Event) []AlertRequest {
	type group struct {
		count  int
		events []string
		source string
	}
	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, event := range events {
		if !e.classifier.IsAuthFailure(event) {
			continue
		}
		id := e.identifier(event)
		g, ok := groups[id]
		if !ok {
			g = &group{source: event.Source}
			groups[id] = g
			order = append(order, id)
		}
		g.count++
		g.events = append(g.events, event.EventID)
	}

	requests := make([]AlertRequest, 0)
	for _, id := range order {
		g := groups[id]
		if g.count < e.cfg.BruteForceThreshold {
			continue
		}
		requests = append(requests, AlertRequest{
			Type:          core.AlertTypeBruteForce,
			Severity:      core.SeverityCritical,
			Message:       fmt.Sprintf("Multiple failed login attempts from %s (%d attempts)", id, g.count),
			Source:        g.source,
			Identifier:    id,
			RelatedEvents: g.events,
		})
	}
	return requests
}

// detectInjection flags every event matching an injection signature group,
// no threshold, typed by the matched group.
func (e *Engine) detectInjection(events []*core.Event) []AlertRequest {
	categories := []struct {
		category Category
		typ      core.AlertType
	}{
		{CategorySQLInjection, core.AlertTypeSQLInjection},
		{CategoryXSS, core.AlertTypeXSS},
		{CategoryDirectoryTraversal, core.AlertTypeDirectoryTraversal},
	}

	requests := make([]AlertRequest, 0)
	for _, event := range events {
		for _, c := range categories {
			if !e.classifier.Matches(event, c.category) {
				continue
			}
			requests = append(requests, AlertRequest{
				Type:          c.typ,
				Severity:      core.SeverityHigh,
				Message:       fmt.Sprintf("Potential %s detected: %s", c.category, event.Message),
				Source:        event.Source,
				Identifier:    e.identifier(event),
				RelatedEvents: []string{event.EventID},
			})
			break
		}
	}
	return requests
}

// detectAnomalyRate flags an unusually high ERROR rate in the snapshot
func (e *Engine) detectAnomalyRate(events []*core.Event) []AlertRequest {
	errorCount := 0
	related := make([]string, 0)
	for _, event := range events {
		if event.Level == core.LevelError {
			errorCount++
			related = append(related, event.EventID)
		}
	}
	if errorCount <= e.cfg.AnomalyThreshold {
		return nil
	}
	return []AlertRequest{{
		Type:          core.AlertTypeSystemAnomaly,
		Severity:      core.SeverityMedium,
		Message:       fmt.Sprintf("High error rate detected: %d errors in recent events", errorCount),
		Source:        "system",
		Identifier:    "error-rate",
		RelatedEvents: related,
	}}
}

// identifier picks the grouping key for an event: its IP address field when
// present, else the first IPv4 literal in the message, else the source label.
func (e *Engine) identifier(event *core.Event) string {
	if event.IPAddress != "" {
		return event.IPAddress
	}
	if ip := ipv4Pattern.FindString(event.Message); ip != "" {
		return ip
	}
	return event.Source
}

// suppress records the (type, identifier) key and reports whether it was
// already seen within the cooldown window.
func (e *Engine) suppress(req AlertRequest) bool {
	key := string(req.Type) + "|" + req.Identifier
	if _, seen := e.seen.Get(key); seen {
		return true
	}
	e.seen.Add(key, time.Now())
	return false
}
