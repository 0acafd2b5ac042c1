package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// AppConfig is the main configuration structure for the application.
// It aggregates configurations for all subsystems.
type AppConfig struct {
	App        AppSettings      `yaml:"app" toml:"app"`                 // General application configuration.
	Sink       SinkConfig       `yaml:"sink" toml:"sink"`               // Where the emitter delivers events.
	Logger     LoggerConfig     `yaml:"logger" toml:"logger"`           // Event logger behaviour.
	Collector  CollectorConfig  `yaml:"collector" toml:"collector"`     // Reference collector settings.
	Viewer     ViewerConfig     `yaml:"viewer" toml:"viewer"`           // Session log viewer settings.
	Retry      RetryConfig      `yaml:"retry" toml:"retry"`             // Retry configuration.
	DeadLetter DeadLetterConfig `yaml:"dead_letter" toml:"dead_letter"` // Undeliverable batch spool.
}

// AppSettings contains general application settings.
type AppSettings struct {
	Env       string `yaml:"env" toml:"env"`               // Execution environment (e.g., development, production).
	LogLevel  string `yaml:"log_level" toml:"log_level"`   // Diagnostic logging level.
	LogFormat string `yaml:"log_format" toml:"log_format"` // "text" or "json".
}

// SinkConfig selects and configures the outbound event transport.
type SinkConfig struct {
	Transport   string `yaml:"transport" toml:"transport"`       // "http" or "kafka".
	Endpoint    string `yaml:"endpoint" toml:"endpoint"`         // Base URL of the collector.
	Token       string `yaml:"token" toml:"token"`               // Optional bearer token.
	TimeoutMs   int    `yaml:"timeout_ms" toml:"timeout_ms"`     // HTTP client timeout.
	KafkaBroker string `yaml:"kafka_broker" toml:"kafka_broker"` // Kafka bootstrap servers.
	KafkaTopic  string `yaml:"kafka_topic" toml:"kafka_topic"`   // Kafka topic.
}

// LoggerConfig contains event logger settings.
type LoggerConfig struct {
	Enabled         bool   `yaml:"enabled" toml:"enabled"`                     // Global kill-switch.
	BatchSize       int    `yaml:"batch_size" toml:"batch_size"`               // Threshold flush size.
	FlushIntervalMs int    `yaml:"flush_interval_ms" toml:"flush_interval_ms"` // Periodic flush interval.
	MinimumSeverity string `yaml:"minimum_severity" toml:"minimum_severity"`   // DEBUG..CRITICAL.
}

// CollectorConfig contains collector-specific settings.
type CollectorConfig struct {
	Addr                   string `yaml:"addr" toml:"addr"`                                         // Listen address.
	DBPath                 string `yaml:"db_path" toml:"db_path"`                                   // SQLite file, ":memory:" allowed.
	AuditFile              string `yaml:"audit_file" toml:"audit_file"`                             // Path to the audit trail.
	Token                  string `yaml:"token" toml:"token"`                                       // Bearer token required by read endpoints.
	MetricsIntervalSeconds int    `yaml:"metrics_interval_seconds" toml:"metrics_interval_seconds"` // Metrics logging interval.
	KafkaEnabled           bool   `yaml:"kafka_enabled" toml:"kafka_enabled"`                       // Also ingest batches from Kafka.
	KafkaBroker            string `yaml:"kafka_broker" toml:"kafka_broker"`                         // Kafka bootstrap servers.
	KafkaTopic             string `yaml:"kafka_topic" toml:"kafka_topic"`                           // Topic written by the Kafka sink.
	ConsumerGroup          string `yaml:"consumer_group" toml:"consumer_group"`                     // Kafka consumer group.
	MaxConsecutiveErrors   int    `yaml:"max_consecutive_errors" toml:"max_consecutive_errors"`     // Stop threshold for the consumer loop.
}

// ViewerConfig contains viewer-specific settings.
type ViewerConfig struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`     // Collector base URL.
	Token     string `yaml:"token" toml:"token"`           // Bearer token.
	SessionID string `yaml:"session_id" toml:"session_id"` // Empty means "all sessions".
	Limit     int    `yaml:"limit" toml:"limit"`           // Cap for the recent window.
	RefreshMs int    `yaml:"refresh_ms" toml:"refresh_ms"` // Auto-refresh interval.
	TopVerbs  int    `yaml:"top_verbs" toml:"top_verbs"`   // Verbs shown in statistics.
}

// RetryConfig contains retry model settings.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts" toml:"max_attempts"`         // Maximum number of attempts.
	InitialDelayMs int     `yaml:"initial_delay_ms" toml:"initial_delay_ms"` // Initial delay in milliseconds.
	MaxDelayMs     int     `yaml:"max_delay_ms" toml:"max_delay_ms"`         // Maximum delay in milliseconds.
	Multiplier     float64 `yaml:"multiplier" toml:"multiplier"`             // Backoff multiplier.
}

// DeadLetterConfig contains dead-letter spool settings.
type DeadLetterConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"` // Enables or disables the spool.
	File    string `yaml:"file" toml:"file"`       // JSON-lines file receiving undeliverable batches.
}

// DefaultConfig returns a configuration with default values.
// These values are used if no external configuration is provided.
//
// Returns:
//   - *AppConfig: A pointer to the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		App: AppSettings{
			Env:       "development",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Sink: SinkConfig{
			Transport:   DefaultSinkTransport,
			Endpoint:    DefaultSinkEndpoint,
			TimeoutMs:   int(SinkTimeout / time.Millisecond),
			KafkaBroker: DefaultKafkaBroker,
			KafkaTopic:  DefaultKafkaTopic,
		},
		Logger: LoggerConfig{
			Enabled:         true,
			BatchSize:       LoggerBatchSize,
			FlushIntervalMs: int(LoggerFlushInterval / time.Millisecond),
			MinimumSeverity: LoggerMinimumSeverity,
		},
		Collector: CollectorConfig{
			Addr:                   CollectorAddr,
			DBPath:                 CollectorDBPath,
			AuditFile:              CollectorAuditFile,
			MetricsIntervalSeconds: int(CollectorMetricsInterval / time.Second),
			KafkaBroker:            DefaultKafkaBroker,
			KafkaTopic:             DefaultKafkaTopic,
			ConsumerGroup:          DefaultConsumerGroup,
			MaxConsecutiveErrors:   CollectorMaxConsecutiveErrors,
		},
		Viewer: ViewerConfig{
			BaseURL:   DefaultSinkEndpoint,
			Limit:     DefaultLimit,
			RefreshMs: int(ViewerRefreshInterval / time.Millisecond),
			TopVerbs:  ViewerTopVerbs,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialDelayMs: 100,
			MaxDelayMs:     5000,
			Multiplier:     2.0,
		},
		DeadLetter: DeadLetterConfig{
			Enabled: true,
			File:    EmitterDeadLetterFile,
		},
	}
}

// Load loads the configuration from a YAML or TOML file, utilizing default
// values if necessary. Files ending in ".toml" are decoded as TOML, anything
// else as YAML. Environment variables override values from the file.
//
// Parameters:
//   - configPath: Path to the configuration file (optional).
//
// Returns:
//   - *AppConfig: The loaded configuration.
//   - error: An error if loading fails.
func Load(configPath string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			// Not found file is acceptable, use defaults
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error loading config file: %w", err)
			}
		}
	}

	loadFromEnv(cfg)

	return cfg, nil
}

// loadFromFile dispatches on the file extension.
func loadFromFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("error parsing TOML: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing YAML: %w", err)
	}
	return nil
}

// loadFromEnv overrides the configuration with environment variables.
//
// Parameters:
//   - cfg: The configuration structure to update.
func loadFromEnv(cfg *AppConfig) {
	// App Parameters
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.LogFormat, "LOG_FORMAT")

	// Sink Parameters
	setString(&cfg.Sink.Transport, "LEARNLOG_SINK_TRANSPORT")
	setString(&cfg.Sink.Endpoint, "LEARNLOG_SINK_ENDPOINT")
	setString(&cfg.Sink.Token, "LEARNLOG_SINK_TOKEN")
	setInt(&cfg.Sink.TimeoutMs, "LEARNLOG_SINK_TIMEOUT_MS")
	setString(&cfg.Sink.KafkaBroker, "KAFKA_BROKER")
	setString(&cfg.Sink.KafkaTopic, "KAFKA_TOPIC")

	// Logger Parameters
	setBool(&cfg.Logger.Enabled, "LEARNLOG_ENABLED")
	setInt(&cfg.Logger.BatchSize, "LEARNLOG_BATCH_SIZE")
	setInt(&cfg.Logger.FlushIntervalMs, "LEARNLOG_FLUSH_INTERVAL_MS")
	setString(&cfg.Logger.MinimumSeverity, "LEARNLOG_MINIMUM_SEVERITY")

	// Collector Parameters
	setString(&cfg.Collector.Addr, "COLLECTOR_ADDR")
	setString(&cfg.Collector.DBPath, "COLLECTOR_DB_PATH")
	setString(&cfg.Collector.AuditFile, "COLLECTOR_AUDIT_FILE")
	setString(&cfg.Collector.Token, "COLLECTOR_TOKEN")
	setBool(&cfg.Collector.KafkaEnabled, "COLLECTOR_KAFKA_ENABLED")
	setString(&cfg.Collector.KafkaBroker, "KAFKA_BROKER")
	setString(&cfg.Collector.KafkaTopic, "KAFKA_TOPIC")
	setString(&cfg.Collector.ConsumerGroup, "KAFKA_CONSUMER_GROUP")

	// Viewer Parameters
	setString(&cfg.Viewer.BaseURL, "VIEWER_BASE_URL")
	setString(&cfg.Viewer.Token, "VIEWER_TOKEN")
	setString(&cfg.Viewer.SessionID, "VIEWER_SESSION_ID")
	setInt(&cfg.Viewer.Limit, "VIEWER_LIMIT")
	setInt(&cfg.Viewer.RefreshMs, "VIEWER_REFRESH_MS")

	// Retry Parameters
	setInt(&cfg.Retry.MaxAttempts, "RETRY_MAX_ATTEMPTS")

	// Dead letter Parameters
	setBool(&cfg.DeadLetter.Enabled, "DEAD_LETTER_ENABLED")
	setString(&cfg.DeadLetter.File, "DEAD_LETTER_FILE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt ignores values that do not parse, keeping the previous value.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

// setBool treats only "true" and "1" as truthy.
func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

// GetFlushInterval returns the logger flush interval as a duration.
//
// Returns:
//   - time.Duration: The interval.
func (c *AppConfig) GetFlushInterval() time.Duration {
	return time.Duration(c.Logger.FlushIntervalMs) * time.Millisecond
}

// GetSinkTimeout returns the sink HTTP timeout as a duration.
//
// Returns:
//   - time.Duration: The timeout.
func (c *AppConfig) GetSinkTimeout() time.Duration {
	return time.Duration(c.Sink.TimeoutMs) * time.Millisecond
}

// GetMetricsInterval returns the collector metrics interval as a duration.
//
// Returns:
//   - time.Duration: The interval.
func (c *AppConfig) GetMetricsInterval() time.Duration {
	return time.Duration(c.Collector.MetricsIntervalSeconds) * time.Second
}

// GetRefreshInterval returns the viewer auto-refresh interval as a duration.
//
// Returns:
//   - time.Duration: The interval.
func (c *AppConfig) GetRefreshInterval() time.Duration {
	return time.Duration(c.Viewer.RefreshMs) * time.Millisecond
}

// GetInitialRetryDelay returns the initial retry delay as a duration.
//
// Returns:
//   - time.Duration: The initial delay.
func (c *AppConfig) GetInitialRetryDelay() time.Duration {
	return time.Duration(c.Retry.InitialDelayMs) * time.Millisecond
}

// GetMaxRetryDelay returns the maximum retry delay as a duration.
//
// Returns:
//   - time.Duration: The maximum delay.
func (c *AppConfig) GetMaxRetryDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelayMs) * time.Millisecond
}
