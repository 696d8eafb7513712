package service

import (
	"fmt"
	"math/rand"
	"time"

	"logwarden/core"
)

// Sampler generates demo log events so dashboards have something to show
// before a real source is connected. Disabled by default in config.
type Sampler struct {
	rng *rand.Rand
}

type sampleTemplate struct {
	level    core.Level
	message  string
	category string
}

var sampleTemplates = []sampleTemplate{
	{core.LevelInfo, "User login successful for user: user%d", "authentication"},
	{core.LevelWarning, "High CPU usage detected: %d%%", "system"},
	{core.LevelError, "Failed to connect to database: service-%d", "application"},
	{core.LevelInfo, "HTTP request processed in %dms", "network"},
	{core.LevelError, "Authentication failed for user: user%d", "security"},
	{core.LevelWarning, "Memory usage threshold exceeded: %d%%", "system"},
	{core.LevelInfo, "Backup completed successfully", "system"},
	{core.LevelError, "SQL injection attempt detected from IP: 192.168.1.%d", "security"},
	{core.LevelWarning, "Disk space low on partition /var: %d%% used", "system"},
	{core.LevelInfo, "User logout for session: session-%d", "authentication"},
	{core.LevelCritical, "Critical system failure in module: module-%d", "system"},
	{core.LevelDebug, "Processing request from 10.0.0.%d", "network"},
	{core.LevelError, "Connection refused to backend-%d", "network"},
	{core.LevelWarning, "Suspicious activity detected from 192.168.1.%d", "security"},
}

var sampleSources = []string{"nginx", "application", "database", "security", "firewall", "mail-server", "auth-service"}
var sampleHosts = []string{"web-01", "web-02", "db-01", "app-01", "proxy-01"}

// NewSampler creates a sampler with its own RNG
func NewSampler() *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Generate produces a small batch of sample events
func (s *Sampler) Generate() []*core.Event {
	events := make([]*core.Event, 0, 5)
	for i := 0; i < 5; i++ {
		tpl := sampleTemplates[s.rng.Intn(len(sampleTemplates))]

		event := core.NewEvent()
		event.Level = tpl.level
		event.Source = sampleSources[s.rng.Intn(len(sampleSources))]
		event.Timestamp = time.Now().UTC().Add(-time.Duration(s.rng.Intn(300)) * time.Second)

		if containsVerb(tpl.message) {
			event.Message = fmt.Sprintf(tpl.message, s.rng.Intn(255))
		} else {
			event.Message = tpl.message
		}

		event.Metadata["category"] = tpl.category
		event.Metadata["host"] = sampleHosts[s.rng.Intn(len(sampleHosts))]
		event.Metadata["request_id"] = fmt.Sprintf("req-%d", s.rng.Intn(10000))

		events = append(events, event)
	}
	return events
}

func containsVerb(tpl string) bool {
	for i := 0; i+1 < len(tpl); i++ {
		if tpl[i] == '%' && tpl[i+1] == 'd' {
			return true
		}
	}
	return false
}
