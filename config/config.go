package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"logwarden/notify"
)

// Config holds all configuration for the logwarden service
type Config struct {
	Window struct {
		Capacity int `mapstructure:"capacity"`
	} `mapstructure:"window"`

	Alerts struct {
		Capacity int `mapstructure:"capacity"`
	} `mapstructure:"alerts"`

	Correlation struct {
		SweepInterval       time.Duration `mapstructure:"sweep_interval"`
		SweepSize           int           `mapstructure:"sweep_size"`
		BruteForceThreshold int           `mapstructure:"brute_force_threshold"`
		AnomalyThreshold    int           `mapstructure:"anomaly_threshold"`
		DedupCooldown       time.Duration `mapstructure:"dedup_cooldown"`
	} `mapstructure:"correlation"`

	Classify struct {
		// SignatureFile optionally overrides the built-in signature table
		SignatureFile string `mapstructure:"signature_file"`
	} `mapstructure:"classify"`

	Sampler struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"sampler"`

	Storage struct {
		SQLitePath string `mapstructure:"sqlite_path"`
		Enabled    bool   `mapstructure:"enabled"`
	} `mapstructure:"storage"`

	API struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`

		RateLimit struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Notifications []notify.ChannelConfig `mapstructure:"notifications"`

	Workers struct {
		Count     int `mapstructure:"count"`
		QueueSize int `mapstructure:"queue_size"`
	} `mapstructure:"workers"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

func setDefaults() {
	viper.SetDefault("window.capacity", 1000)
	viper.SetDefault("alerts.capacity", 100)

	viper.SetDefault("correlation.sweep_interval", 5*time.Second)
	viper.SetDefault("correlation.sweep_size", 100)
	viper.SetDefault("correlation.brute_force_threshold", 5)
	viper.SetDefault("correlation.anomaly_threshold", 10)
	viper.SetDefault("correlation.dedup_cooldown", 10*time.Minute)

	viper.SetDefault("classify.signature_file", "")

	viper.SetDefault("sampler.enabled", false)
	viper.SetDefault("sampler.interval", 2*time.Second)

	viper.SetDefault("storage.sqlite_path", "./data/logwarden.db")
	viper.SetDefault("storage.enabled", true)

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.rate_limit.requests_per_second", 100)
	viper.SetDefault("api.rate_limit.burst", 200)

	viper.SetDefault("workers.count", 4)
	viper.SetDefault("workers.queue_size", 256)

	viper.SetDefault("logging.level", "info")
}

// Load reads configuration from logwarden.yaml (working directory or /etc/logwarden)
// and LOGWARDEN_* environment variables, applying defaults for anything unset.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("logwarden")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/logwarden")

	viper.SetEnvPrefix("LOGWARDEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults + env apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot work
func (c *Config) Validate() error {
	if c.Window.Capacity <= 0 {
		return fmt.Errorf("window.capacity must be positive, got %d", c.Window.Capacity)
	}
	if c.Alerts.Capacity <= 0 {
		return fmt.Errorf("alerts.capacity must be positive, got %d", c.Alerts.Capacity)
	}
	if c.Correlation.SweepInterval <= 0 {
		return fmt.Errorf("correlation.sweep_interval must be positive, got %s", c.Correlation.SweepInterval)
	}
	if c.Correlation.BruteForceThreshold <= 0 {
		return fmt.Errorf("correlation.brute_force_threshold must be positive, got %d", c.Correlation.BruteForceThreshold)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be in 1-65535, got %d", c.API.Port)
	}
	for i, n := range c.Notifications {
		if !n.Enabled {
			continue
		}
		if n.Type == notify.ChannelWebhook && n.WebhookURL == "" {
			return fmt.Errorf("notifications[%d]: webhook channel requires webhook_url", i)
		}
	}
	return nil
}
