package config

import (
	"fmt"
	"time"

	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/ifuryst/herald/pkg/logger"
)

// MaxBatchSize bounds every selector so a single run stays inside the
// trigger's invocation time limit.
const MaxBatchSize = 10

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logger     logger.Config    `yaml:"logger"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Engagement EngagementConfig `yaml:"engagement"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Sentry     SentryConfig     `yaml:"sentry"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type        string `yaml:"type"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"ssl_mode"`
	TimeZone    string `yaml:"timezone"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// SchedulerConfig covers both ways a run gets triggered: the shared secret
// checked on external calls and the optional in-process ticker.
type SchedulerConfig struct {
	Secret   string `yaml:"secret"`
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
}

type PublisherConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	Provider      string `yaml:"provider"`
	Timeout       string `yaml:"timeout"`
	MediaTimeout  string `yaml:"media_timeout"`
	RateLimit     int    `yaml:"rate_limit"` // requests per second, 0 disables pacing
	PostURLPrefix string `yaml:"post_url_prefix"`
}

type EngagementConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	Timeout     string `yaml:"timeout"`
	MaxInFlight int    `yaml:"max_in_flight"`
}

type PipelineConfig struct {
	BatchSize       int    `yaml:"batch_size"`
	Concurrency     int    `yaml:"concurrency"`
	StaleClaimAfter string `yaml:"stale_claim_after"`
}

// MonitoringConfig controls how long run history and resolved errors are kept.
type MonitoringConfig struct {
	RetentionDays   int    `yaml:"retention_days"`
	CleanupInterval string `yaml:"cleanup_interval"`
}

type SentryConfig struct {
	DSN         string  `yaml:"dsn"`
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"sample_rate"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5334
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Scheduler.Interval == "" {
		cfg.Scheduler.Interval = "5m"
	}
	if cfg.Publisher.Provider == "" {
		cfg.Publisher.Provider = "LINKEDIN"
	}
	if cfg.Publisher.Timeout == "" {
		cfg.Publisher.Timeout = "30s"
	}
	if cfg.Publisher.MediaTimeout == "" {
		cfg.Publisher.MediaTimeout = "30s"
	}
	if cfg.Publisher.PostURLPrefix == "" {
		cfg.Publisher.PostURLPrefix = "https://www.linkedin.com/feed/update/"
	}
	if cfg.Engagement.Timeout == "" {
		cfg.Engagement.Timeout = "10s"
	}
	if cfg.Engagement.MaxInFlight == 0 {
		cfg.Engagement.MaxInFlight = 16
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = MaxBatchSize
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 4
	}
	if cfg.Pipeline.StaleClaimAfter == "" {
		cfg.Pipeline.StaleClaimAfter = "15m"
	}
	if cfg.Monitoring.RetentionDays == 0 {
		cfg.Monitoring.RetentionDays = 90
	}
	if cfg.Monitoring.CleanupInterval == "" {
		cfg.Monitoring.CleanupInterval = "24h"
	}
}

// Validate checks the values LoadConfig cannot default.
func (cfg *Config) Validate() error {
	if cfg.Pipeline.BatchSize < 1 || cfg.Pipeline.BatchSize > MaxBatchSize {
		return fmt.Errorf("pipeline.batch_size must be between 1 and %d, got %d", MaxBatchSize, cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.Publisher.RateLimit < 0 {
		return fmt.Errorf("publisher.rate_limit must not be negative")
	}

	durations := map[string]string{
		"scheduler.interval":          cfg.Scheduler.Interval,
		"publisher.timeout":           cfg.Publisher.Timeout,
		"publisher.media_timeout":     cfg.Publisher.MediaTimeout,
		"engagement.timeout":          cfg.Engagement.Timeout,
		"pipeline.stale_claim_after":  cfg.Pipeline.StaleClaimAfter,
		"monitoring.cleanup_interval": cfg.Monitoring.CleanupInterval,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	if cfg.Engagement.Enabled && cfg.Engagement.URL == "" {
		return fmt.Errorf("engagement.url is required when engagement is enabled")
	}

	return nil
}

func (c SchedulerConfig) IntervalDuration() time.Duration {
	return parseDuration(c.Interval, 5*time.Minute)
}

func (c PublisherConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

func (c PublisherConfig) MediaTimeoutDuration() time.Duration {
	return parseDuration(c.MediaTimeout, 30*time.Second)
}

func (c EngagementConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// StaleClaimDuration returns zero when stale claim recovery is disabled.
func (c PipelineConfig) StaleClaimDuration() time.Duration {
	return parseDuration(c.StaleClaimAfter, 15*time.Minute)
}

func (c MonitoringConfig) CleanupIntervalDuration() time.Duration {
	return parseDuration(c.CleanupInterval, 24*time.Hour)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
