package core

// Level represents the canonical log level of an event
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// String returns the string representation
func (l Level) String() string {
	return string(l)
}

// IsValid checks if the level is a member of the canonical set
func (l Level) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical:
		return true
	default:
		return false
	}
}

// Levels returns all canonical levels in ascending order of severity
func Levels() []Level {
	return []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical}
}

// Severity represents the severity of an alert
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// String returns the string representation
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// RiskScore derives the numeric risk score for a severity.
// The mapping is fixed: CRITICAL=95, HIGH=75, MEDIUM=50, LOW=25, anything else 10.
func RiskScore(s Severity) int {
	switch s {
	case SeverityCritical:
		return 95
	case SeverityHigh:
		return 75
	case SeverityMedium:
		return 50
	case SeverityLow:
		return 25
	default:
		return 10
	}
}

// ThreatLevel represents the classification result for a single event
type ThreatLevel string

const (
	ThreatNone     ThreatLevel = "NONE"
	ThreatLow      ThreatLevel = "LOW"
	ThreatMedium   ThreatLevel = "MEDIUM"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

// String returns the string representation
func (t ThreatLevel) String() string {
	return string(t)
}

// AlertType identifies the detector category that produced an alert
type AlertType string

const (
	AlertTypeBruteForce         AlertType = "BRUTE_FORCE"
	AlertTypeSQLInjection       AlertType = "SQL_INJECTION"
	AlertTypeXSS                AlertType = "XSS"
	AlertTypeDirectoryTraversal AlertType = "DIRECTORY_TRAVERSAL"
	AlertTypeSystemAnomaly      AlertType = "SYSTEM_ANOMALY"
	AlertTypeErrorDetected      AlertType = "ERROR_DETECTED"
	AlertTypeSecurityThreat     AlertType = "SECURITY_THREAT"
	AlertTypePerformanceIssue   AlertType = "PERFORMANCE_ISSUE"
)
