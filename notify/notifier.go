package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"logwarden/core"
)

// ChannelType represents the type of notification channel
type ChannelType string

const (
	ChannelWebhook ChannelType = "webhook"
	ChannelLog     ChannelType = "log"
)

// ChannelConfig holds configuration for one notification channel
type ChannelConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Type    ChannelType `mapstructure:"type"`

	// Webhook configuration
	WebhookURL     string            `mapstructure:"webhook_url"`
	WebhookMethod  string            `mapstructure:"webhook_method"`
	WebhookHeaders map[string]string `mapstructure:"webhook_headers"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`

	// MinSeverity filters deliveries: LOW, MEDIUM, HIGH, CRITICAL
	MinSeverity string `mapstructure:"min_severity"`
}

// Channel delivers one alert over one transport
type Channel interface {
	Send(ctx context.Context, alert *core.Alert) error
	Name() string
}

// Dispatcher fans an alert out to every configured channel. A failing channel
// is isolated: it is logged and counted but never blocks the others or the
// caller. Dispatcher implements core.AlertNotifier.
type Dispatcher struct {
	channels []channelEntry
	logger   *zap.SugaredLogger
}

type channelEntry struct {
	channel     Channel
	minSeverity core.Severity
}

var severityRank = map[core.Severity]int{
	core.SeverityLow:      1,
	core.SeverityMedium:   2,
	core.SeverityHigh:     3,
	core.SeverityCritical: 4,
}

// NewDispatcher builds a dispatcher from channel configs, skipping disabled ones
func NewDispatcher(configs []ChannelConfig, logger *zap.SugaredLogger) *Dispatcher {
	d := &Dispatcher{logger: logger}
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var ch Channel
		switch cfg.Type {
		case ChannelWebhook:
			ch = NewWebhookChannel(cfg)
		case ChannelLog:
			ch = NewLogChannel(logger)
		default:
			logger.Warnw("Unknown notification channel type, skipping", "type", cfg.Type)
			continue
		}

		d.channels = append(d.channels, channelEntry{
			channel:     ch,
			minSeverity: core.Severity(cfg.MinSeverity),
		})
	}
	return d
}

// AddChannel registers an extra channel, used by tests and custom wiring
func (d *Dispatcher) AddChannel(ch Channel, minSeverity core.Severity) {
	d.channels = append(d.channels, channelEntry{channel: ch, minSeverity: minSeverity})
}

// Notify delivers the alert to every channel whose severity filter admits it.
// Returns the last delivery error, if any; partial delivery is not rolled back.
func (d *Dispatcher) Notify(ctx context.Context, alert *core.Alert) error {
	var lastErr error
	for _, entry := range d.channels {
		if entry.minSeverity != "" && severityRank[alert.Severity] < severityRank[entry.minSeverity] {
			continue
		}
		if err := entry.channel.Send(ctx, alert); err != nil {
			d.logger.Warnw("Notification channel failed",
				"channel", entry.channel.Name(),
				"alert_id", alert.AlertID,
				"error", err)
			lastErr = err
		}
	}
	return lastErr
}

// WebhookChannel POSTs alerts as JSON to a configured URL
type WebhookChannel struct {
	url     string
	method  string
	headers map[string]string
	client  *http.Client
}

// NewWebhookChannel creates a webhook channel from config
func NewWebhookChannel(cfg ChannelConfig) *WebhookChannel {
	method := cfg.WebhookMethod
	if method == "" {
		method = http.MethodPost
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		url:     cfg.WebhookURL,
		method:  method,
		headers: cfg.WebhookHeaders,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the channel identifier
func (w *WebhookChannel) Name() string {
	return "webhook"
}

// Send posts the alert payload to the webhook endpoint
func (w *WebhookChannel) Send(ctx context.Context, alert *core.Alert) error {
	payload, err := json.Marshal(map[string]interface{}{
		"alert_id":   alert.AlertID,
		"created_at": alert.CreatedAt,
		"severity":   alert.Severity,
		"type":       alert.Type,
		"message":    alert.Message,
		"source":     alert.Source,
		"risk_score": alert.RiskScore,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, w.method, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogChannel writes alert notifications to the service log. Useful as a
// default channel when no external transport is configured.
type LogChannel struct {
	logger *zap.SugaredLogger
}

// NewLogChannel creates a log channel
func NewLogChannel(logger *zap.SugaredLogger) *LogChannel {
	return &LogChannel{logger: logger}
}

// Name returns the channel identifier
func (l *LogChannel) Name() string {
	return "log"
}

// Send logs the alert at warn level
func (l *LogChannel) Send(_ context.Context, alert *core.Alert) error {
	l.logger.Warnw("ALERT",
		"alert_id", alert.AlertID,
		"severity", alert.Severity,
		"type", alert.Type,
		"source", alert.Source,
		"risk_score", alert.RiskScore,
		"message", alert.Message)
	return nil
}
