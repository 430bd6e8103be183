package config

import (
	"encoding/json"
	"errors"
	"time"
)

// Config represents the main chatrelay configuration
type Config struct {
	// HTTP and WebSocket listener
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Model backend
	Backend BackendConfig `json:"backend" mapstructure:"backend"`

	// Request adapter settings
	Adapter AdapterConfig `json:"adapter" mapstructure:"adapter"`

	// Persona catalog
	Personas PersonasConfig `json:"personas" mapstructure:"personas"`

	// Session and project persistence
	Store StoreConfig `json:"store" mapstructure:"store"`

	// Project snapshot storage
	Blob BlobConfig `json:"blob" mapstructure:"blob"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// OpenTelemetry
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string   `json:"host" mapstructure:"host"`
	Port            int      `json:"port" mapstructure:"port"`
	RequestTimeout  int      `json:"request_timeout" mapstructure:"request_timeout"`   // seconds
	ShutdownTimeout int      `json:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	AllowedOrigins  []string `json:"allowed_origins" mapstructure:"allowed_origins"`
	WebSocket       bool     `json:"websocket" mapstructure:"websocket"`
	RateLimit       int      `json:"rate_limit" mapstructure:"rate_limit"` // requests per minute per client IP, 0 disables
}

// BackendConfig selects and configures the model backend
type BackendConfig struct {
	Kind         string `json:"kind" mapstructure:"kind"` // bedrock, echo
	Region       string `json:"region" mapstructure:"region"`
	Profile      string `json:"profile" mapstructure:"profile"` // AWS shared config profile
	Endpoint     string `json:"endpoint" mapstructure:"endpoint"`
	DefaultModel string `json:"default_model" mapstructure:"default_model"`
	EchoPrefix   string `json:"echo_prefix" mapstructure:"echo_prefix"`
}

// AdapterConfig holds request adapter settings
type AdapterConfig struct {
	Profile string `json:"profile" mapstructure:"profile"` // standard, compact
}

// PersonasConfig holds persona catalog settings
type PersonasConfig struct {
	Policy     string `json:"policy" mapstructure:"policy"` // strict, fallback
	Catalog    string `json:"catalog" mapstructure:"catalog"`
	Watch      bool   `json:"watch" mapstructure:"watch"`
	DebounceMs int    `json:"debounce_ms" mapstructure:"debounce_ms"`
}

// StoreConfig selects the session and project store
type StoreConfig struct {
	Kind              string        `json:"kind" mapstructure:"kind"` // none, file, sqlite, dynamodb
	Dir               string        `json:"dir" mapstructure:"dir"`
	SQLitePath        string        `json:"sqlite_path" mapstructure:"sqlite_path"`
	Dynamo            DynamoConfig  `json:"dynamodb" mapstructure:"dynamodb"`
	Retention         time.Duration `json:"retention" mapstructure:"retention"` // 0 disables the sweep
	RetentionSchedule string        `json:"retention_schedule" mapstructure:"retention_schedule"`
}

// DynamoConfig names the DynamoDB tables
type DynamoConfig struct {
	SessionsTable string `json:"sessions_table" mapstructure:"sessions_table"`
	SessionsKey   string `json:"sessions_key" mapstructure:"sessions_key"`
	ProjectsTable string `json:"projects_table" mapstructure:"projects_table"`
	ProjectsKey   string `json:"projects_key" mapstructure:"projects_key"`
}

// BlobConfig selects where project snapshots are written
type BlobConfig struct {
	Kind   string `json:"kind" mapstructure:"kind"` // none, dir, s3
	Dir    string `json:"dir" mapstructure:"dir"`
	Bucket string `json:"bucket" mapstructure:"bucket"`
	Prefix string `json:"prefix" mapstructure:"prefix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  120,
			ShutdownTimeout: 10,
			AllowedOrigins:  []string{"*"},
			WebSocket:       true,
			RateLimit:       120,
		},
		Backend: BackendConfig{
			Kind:         "bedrock",
			Region:       "us-east-1",
			DefaultModel: "anthropic.claude-3-haiku-20240307-v1:0",
		},
		Adapter: AdapterConfig{
			Profile: "standard",
		},
		Personas: PersonasConfig{
			Policy:     "strict",
			DebounceMs: 250,
		},
		Store: StoreConfig{
			Kind:              "file",
			RetentionSchedule: "@hourly",
			Dynamo: DynamoConfig{
				SessionsKey: "id",
				ProjectsKey: "sessionId",
			},
		},
		Blob: BlobConfig{
			Kind: "none",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "chatrelay",
			SampleRatio: 1,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
