package detect

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"logwarden/core"
)

// Category names a signature group
type Category string

const (
	CategorySQLInjection       Category = "sql_injection"
	CategoryXSS                Category = "xss"
	CategoryDirectoryTraversal Category = "directory_traversal"
	CategorySuspiciousUA       Category = "suspicious_user_agent"
	CategoryBruteForce         Category = "brute_force"
	CategorySlowQuery          Category = "slow_query"
	CategoryMemoryPressure     Category = "memory_pressure"
	CategoryCriticalError      Category = "critical_error"
)

// Target selects which event field a signature matches against
type Target string

const (
	TargetMessage   Target = "message"
	TargetUserAgent Target = "user_agent"
)

// Signature is one named pattern group with the threat level and alert type
// it implies. Pattern matching is case-insensitive substring/regex search.
type Signature struct {
	Category Category
	Target   Target
	Level    core.ThreatLevel
	Type     core.AlertType
	Patterns []string

	compiled []*regexp.Regexp
}

// Classifier evaluates events against a fixed, ordered signature table.
// It is pure and stateless: identical input always yields identical output.
type Classifier struct {
	signatures []Signature
	byCategory map[Category]*Signature
}

// defaultSignatures is the built-in signature table. Order matters only for
// iteration in MatchedCategories; the Classify priority ladder is explicit.
func defaultSignatures() []Signature {
	return []Signature{
		{
			Category: CategorySQLInjection,
			Target:   TargetMessage,
			Level:    core.ThreatHigh,
			Type:     core.AlertTypeSQLInjection,
			Patterns: []string{
				`union`, `select`, `insert`, `delete`, `update`, `drop`,
				`create`, `alter`, `exec`, `<script`, `eval\(`,
			},
		},
		{
			Category: CategoryXSS,
			Target:   TargetMessage,
			Level:    core.ThreatHigh,
			Type:     core.AlertTypeXSS,
			Patterns: []string{
				`script`, `javascript`, `vbscript`, `onload`, `onerror`,
				`onclick`, `onmouseover`, `alert\(`, `document\.`, `window\.`,
			},
		},
		{
			Category: CategoryDirectoryTraversal,
			Target:   TargetMessage,
			Level:    core.ThreatHigh,
			Type:     core.AlertTypeDirectoryTraversal,
			Patterns: []string{`\.\./`, `\.\.\\`},
		},
		{
			Category: CategorySuspiciousUA,
			Target:   TargetUserAgent,
			Level:    core.ThreatHigh,
			Type:     core.AlertTypeSecurityThreat,
			Patterns: []string{
				`bot`, `crawler`, `spider`, `scraper`, `scanner`, `nikto`,
				`sqlmap`, `nmap`, `masscan`, `hydra`, `gobuster`, `dirb`, `wfuzz`,
			},
		},
		{
			Category: CategoryBruteForce,
			Target:   TargetMessage,
			Level:    core.ThreatMedium,
			Type:     core.AlertTypeBruteForce,
			Patterns: []string{
				`failed`, `invalid`, `incorrect`, `denied`,
				`unauthorized`, `forbidden`,
			},
		},
		{
			Category: CategorySlowQuery,
			Target:   TargetMessage,
			Level:    core.ThreatMedium,
			Type:     core.AlertTypePerformanceIssue,
			Patterns: []string{`slow`, `timeout`, `deadlock`, `blocked`, `waiting`},
		},
		{
			Category: CategoryMemoryPressure,
			Target:   TargetMessage,
			Level:    core.ThreatMedium,
			Type:     core.AlertTypePerformanceIssue,
			Patterns: []string{`out of memory`, `heap`, `garbage`, `oom`},
		},
		{
			Category: CategoryCriticalError,
			Target:   TargetMessage,
			Level:    core.ThreatCritical,
			Type:     core.AlertTypeErrorDetected,
			Patterns: []string{
				`fatal`, `critical`, `severe`, `exception`,
				`error`, `failure`, `crash`, `abort`, `panic`,
			},
		},
	}
}

// NewClassifier builds a classifier from the built-in signature table
func NewClassifier() (*Classifier, error) {
	return newClassifier(defaultSignatures())
}

// NewClassifierFromFile builds a classifier from a YAML signature file.
// The file replaces pattern sets per category; categories it omits keep
// their built-in patterns.
func NewClassifierFromFile(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature file: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse signature file: %w", err)
	}

	signatures := defaultSignatures()
	for i := range signatures {
		if patterns, ok := overrides[string(signatures[i].Category)]; ok && len(patterns) > 0 {
			signatures[i].Patterns = patterns
		}
	}
	return newClassifier(signatures)
}

func newClassifier(signatures []Signature) (*Classifier, error) {
	byCategory := make(map[Category]*Signature, len(signatures))
	for i := range signatures {
		sig := &signatures[i]
		sig.compiled = make([]*regexp.Regexp, 0, len(sig.Patterns))
		for _, p := range sig.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q in %s: %w", p, sig.Category, err)
			}
			sig.compiled = append(sig.compiled, re)
		}
		byCategory[sig.Category] = sig
	}
	return &Classifier{signatures: signatures, byCategory: byCategory}, nil
}

// Matches reports whether the event matches the given signature category
func (c *Classifier) Matches(event *core.Event, category Category) bool {
	sig, ok := c.byCategory[category]
	if !ok || event == nil {
		return false
	}

	input := event.Message
	if sig.Target == TargetUserAgent {
		input = event.UserAgent
	}
	if input == "" {
		return false
	}

	for _, re := range sig.compiled {
		if re.MatchString(input) {
			return true
		}
	}
	return false
}

// IsAuthFailure reports whether the event looks like a failed authentication
// attempt: a brute-force keyword plus authentication context in the message.
func (c *Classifier) IsAuthFailure(event *core.Event) bool {
	if event == nil || !c.Matches(event, CategoryBruteForce) {
		return false
	}
	msg := strings.ToLower(event.Message)
	return strings.Contains(msg, "login") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "password") ||
		strings.Contains(msg, "credential")
}

// isSecurityThreat reports whether any security signature group matches
func (c *Classifier) isSecurityThreat(event *core.Event) bool {
	if c.Matches(event, CategorySQLInjection) ||
		c.Matches(event, CategoryXSS) ||
		c.Matches(event, CategoryDirectoryTraversal) ||
		c.Matches(event, CategorySuspiciousUA) {
		return true
	}
	switch event.StatusCode {
	case 401, 403, 404:
		return true
	}
	return false
}

// isPerformanceIssue reports whether a performance signature group matches
// or the recorded response time is above the slow threshold.
func (c *Classifier) isPerformanceIssue(event *core.Event) bool {
	if event.ResponseTimeMs > 5000 {
		return true
	}
	return c.Matches(event, CategorySlowQuery) || c.Matches(event, CategoryMemoryPressure)
}

// Classify returns the aggregate threat level for an event. Highest wins:
// critical error or ERROR/CRITICAL level → CRITICAL; any security threat →
// HIGH; performance issue or auth failure → MEDIUM; WARNING level → LOW;
// otherwise NONE.
func (c *Classifier) Classify(event *core.Event) core.ThreatLevel {
	if event == nil {
		return core.ThreatNone
	}

	if c.Matches(event, CategoryCriticalError) ||
		event.Level == core.LevelError || event.Level == core.LevelCritical {
		return core.ThreatCritical
	}
	if c.isSecurityThreat(event) {
		return core.ThreatHigh
	}
	if c.isPerformanceIssue(event) || c.IsAuthFailure(event) {
		return core.ThreatMedium
	}
	if event.Level == core.LevelWarning {
		return core.ThreatLow
	}
	return core.ThreatNone
}
