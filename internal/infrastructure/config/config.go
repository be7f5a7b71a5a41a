// Package config provides configuration structs and utilities for the medsync
// engine.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config represents the root configuration for the medsync engine.
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Queue         QueueConfig         `yaml:"queue"`
	Remote        RemoteConfig        `yaml:"remote"`
	Resilience    ResilienceConfig    `yaml:"resilience"`
	Policy        PolicyConfig        `yaml:"policy"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds configuration for the durable store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"` // Empty means ~/.medsync/medsync.db
	DataDir      string `yaml:"data_dir"`      // Directory measured by the storage probe
}

// QueueConfig holds configuration for the delivery worker loop.
type QueueConfig struct {
	Workers           int           `yaml:"workers"`
	BatchSize         int           `yaml:"batch_size"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	DeliveryTimeout   time.Duration `yaml:"delivery_timeout"`
	CleanupAfter      time.Duration `yaml:"cleanup_after"` // Terminal-item retention before cleanup
	DefaultPriority   int           `yaml:"default_priority"`
	DefaultMaxRetries int           `yaml:"default_max_retries"`
}

// RemoteConfig holds configuration for the remote delivery endpoint.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// ResilienceConfig holds configuration for the offline tracker.
type ResilienceConfig struct {
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	ReportWindow     time.Duration `yaml:"report_window"`
}

// PolicyConfig holds configuration for conflict resolution policy.
type PolicyConfig struct {
	File        string `yaml:"file"`         // Policy YAML path, hot reloaded when set
	WatchReload bool   `yaml:"watch_reload"` // Reload the policy file on change
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ObservabilityConfig holds configuration for observability features.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"` // 0.0 to 1.0
	ServiceName  string  `yaml:"service_name"`
}

// Default configuration values.
const (
	DefaultWorkers         = 2
	DefaultBatchSize       = 10
	DefaultPollInterval    = 5 * time.Second
	DefaultDeliveryTimeout = 30 * time.Second
	DefaultCleanupAfter    = 7 * 24 * time.Hour

	DefaultRemoteTimeout = 30 * time.Second

	DefaultSnapshotInterval = 10 * time.Minute
	DefaultReportWindow     = 24 * time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultTracingEnabled      = false
	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "medsync"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid log formats.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Valid tracing exporter types.
var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{
			Workers:           DefaultWorkers,
			BatchSize:         DefaultBatchSize,
			PollInterval:      DefaultPollInterval,
			DeliveryTimeout:   DefaultDeliveryTimeout,
			CleanupAfter:      DefaultCleanupAfter,
			DefaultPriority:   5,
			DefaultMaxRetries: 3,
		},
		Remote: RemoteConfig{
			Timeout: DefaultRemoteTimeout,
		},
		Resilience: ResilienceConfig{
			SnapshotInterval: DefaultSnapshotInterval,
			ReportWindow:     DefaultReportWindow,
		},
		Policy: PolicyConfig{
			WatchReload: true,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      DefaultTracingEnabled,
				ExporterType: DefaultTracingExporterType,
				SampleRate:   DefaultTracingSampleRate,
				ServiceName:  DefaultTracingServiceName,
			},
		},
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Queue.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("queue: %w", err))
	}
	if err := c.Remote.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("remote: %w", err))
	}
	if err := c.Resilience.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("resilience: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the QueueConfig is valid.
func (q *QueueConfig) Validate() error {
	var errs []error

	if q.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if q.BatchSize < 1 {
		errs = append(errs, errors.New("batch_size must be at least 1"))
	}
	if q.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if q.DeliveryTimeout <= 0 {
		errs = append(errs, errors.New("delivery_timeout must be positive"))
	}
	if q.DefaultMaxRetries < -1 {
		errs = append(errs, errors.New("default_max_retries must be -1 (unlimited) or non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the RemoteConfig is valid.
func (r *RemoteConfig) Validate() error {
	var errs []error

	if r.BaseURL != "" {
		if _, err := url.Parse(r.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid base_url: %w", err))
		}
	}
	if r.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the ResilienceConfig is valid.
func (r *ResilienceConfig) Validate() error {
	var errs []error

	if r.SnapshotInterval <= 0 {
		errs = append(errs, errors.New("snapshot_interval must be positive"))
	}
	if r.ReportWindow <= 0 {
		errs = append(errs, errors.New("report_window must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}
	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the ObservabilityConfig is valid.
func (o *ObservabilityConfig) Validate() error {
	var errs []error

	if o.Tracing.ExporterType != "" && !validTracingExporterTypes[o.Tracing.ExporterType] {
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q: must be one of none, stdout, otlp", o.Tracing.ExporterType))
	}
	if o.Tracing.SampleRate < 0 || o.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("tracing sample_rate must be between 0.0 and 1.0"))
	}
	if o.Tracing.Enabled && o.Tracing.ExporterType == "otlp" && o.Tracing.OTLPEndpoint == "" {
		errs = append(errs, errors.New("otlp_endpoint is required for the otlp exporter"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
