package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Environment variables that override values from the YAML file.
// The DSN normally comes from secret management, never from the committed file.
const (
	EnvDatabaseURL    = "DATABASE_URL"
	EnvDatabaseDriver = "DATABASE_DRIVER"
	EnvHttpListenAddr = "HTTP_LISTEN_ADDR"
	EnvKafkaBrokers   = "KAFKA_BROKERS"
)

// KafkaProducerConfig defines configuration for the record event producer.
// Leaving brokers empty disables event publishing.
type KafkaProducerConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// Batch processing settings
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	BatchBytes   int           `yaml:"batch_bytes"`

	// Reliability settings
	RequiredAcks string `yaml:"required_acks"`
	Async        bool   `yaml:"async"`

	// Performance settings
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
}

// Enabled reports whether enough is configured to publish events
func (c *KafkaProducerConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// BatchProcessorConfig defines configuration for record event batching
type BatchProcessorConfig struct {
	BatchSize          int           `yaml:"batch_size"`
	BatchTimeout       time.Duration `yaml:"batch_timeout"`
	FlushChannelBuffer int           `yaml:"flush_channel_buffer"` // Buffer size for flush channel
}

// SetDefaults sets reasonable default values for batch processor configuration
func (c *BatchProcessorConfig) SetDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 100
		fmt.Printf("Warning: batch_processor.batch_size not set, defaulting to %d\n", c.BatchSize)
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 500 * time.Millisecond
		fmt.Printf("Warning: batch_processor.batch_timeout not set, defaulting to %v\n", c.BatchTimeout)
	}
	if c.FlushChannelBuffer == 0 {
		c.FlushChannelBuffer = 16
		fmt.Printf("Warning: batch_processor.flush_channel_buffer not set, defaulting to %d\n", c.FlushChannelBuffer)
	}
}

// TimestampConfig controls how inbound time stamps are interpreted
type TimestampConfig struct {
	SourceTimezone string   `yaml:"source_timezone"` // Zone used when the text carries no offset
	TargetTimezone string   `yaml:"target_timezone"` // Canonical zone for stored timestamps
	Layouts        []string `yaml:"layouts"`         // Go reference layouts; empty means the canonical ±hhmm layouts
}

// SetDefaults fills in the canonical zones
func (c *TimestampConfig) SetDefaults() {
	if c.SourceTimezone == "" {
		c.SourceTimezone = "US/Eastern"
	}
	if c.TargetTimezone == "" {
		c.TargetTimezone = "UTC"
	}
}

// HttpServerConfig defines HTTP server configuration
type HttpServerConfig struct {
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// SetDefaults sets the server timeouts used when the file leaves them out
func (c *HttpServerConfig) SetDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.MaxHeaderBytes == 0 {
		c.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 10 << 20 // 10 MB
	}
}

// MonitoringConfig defines health and metrics endpoints
type MonitoringConfig struct {
	EnableMetrics       bool          `yaml:"enable_metrics"`
	MetricsPath         string        `yaml:"metrics_path"`
	HealthCheckPath     string        `yaml:"health_check_path"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"` // Store probe period for gRPC health
}

// SetDefaults sets reasonable default values for monitoring configuration
func (c *MonitoringConfig) SetDefaults() {
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.HealthCheckPath == "" {
		c.HealthCheckPath = "/health"
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = 10 * time.Second
	}
}

// IngestionConfig defines all configuration required for the statistics service
type IngestionConfig struct {
	HttpListenAddr string `yaml:"http_listen_addr"`
	GrpcListenAddr string `yaml:"grpc_listen_addr"` // Optional gRPC health endpoint

	Database       DatabaseConfig       `yaml:"database"`
	KafkaProducer  KafkaProducerConfig  `yaml:"kafka_producer"`
	BatchProcessor BatchProcessorConfig `yaml:"batch_processor"`
	Timestamp      TimestampConfig      `yaml:"timestamp"`
	HttpServer     HttpServerConfig     `yaml:"http_server"`
	Monitoring     MonitoringConfig     `yaml:"monitoring"`
}

// LoadIngestionConfig loads configuration from the specified YAML file path,
// applies environment overrides, defaults and validation
func LoadIngestionConfig(path string) (*IngestionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return ParseIngestionConfig(data)
}

// ParseIngestionConfig builds an IngestionConfig from raw YAML
func ParseIngestionConfig(data []byte) (*IngestionConfig, error) {
	var cfg IngestionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	cfg.Database.SetDefaults()
	cfg.BatchProcessor.SetDefaults()
	cfg.Timestamp.SetDefaults()
	cfg.HttpServer.SetDefaults()
	cfg.Monitoring.SetDefaults()

	if cfg.HttpListenAddr == "" {
		return nil, fmt.Errorf("configuration error: http_listen_addr must be configured")
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("database configuration error: %w", err)
	}

	return &cfg, nil
}

// ApplyEnvOverrides replaces file values with those set in the environment
func (c *IngestionConfig) ApplyEnvOverrides() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvDatabaseDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(EnvHttpListenAddr); v != "" {
		c.HttpListenAddr = v
	}
	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		c.KafkaProducer.Brokers = splitList(v)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
