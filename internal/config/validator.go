package config

import (
	"fmt"
	"strings"

	"github.com/harun/chatrelay/pkg/persona"
	"github.com/harun/chatrelay/pkg/provider"
	"github.com/robfig/cron/v3"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

func oneOf(kind, value string, valid []string) error {
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %s (must be one of: %s)", kind, value, strings.Join(valid, ", "))
}

// ValidatePort validates a TCP port
func (v *Validator) ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateBackendKind validates the backend kind
func (v *Validator) ValidateBackendKind(kind string) error {
	return oneOf("backend kind", kind, []string{"bedrock", "echo"})
}

// ValidateModel validates a default model id. Ids outside the known catalog
// are allowed; they resolve to the generic family.
func (v *Validator) ValidateModel(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model id cannot be empty")
	}
	if !provider.ResolveFamily(model).CanParse() {
		return fmt.Errorf("default model %s has no supported response format", model)
	}
	return nil
}

// ValidateTokenProfile validates an adapter profile name
func (v *Validator) ValidateTokenProfile(name string) error {
	_, err := provider.ProfileByName(name)
	return err
}

// ValidatePersonaPolicy validates the unknown-persona policy
func (v *Validator) ValidatePersonaPolicy(policy string) error {
	_, err := persona.ParsePolicy(policy)
	return err
}

// ValidateStoreKind validates the session store kind
func (v *Validator) ValidateStoreKind(kind string) error {
	return oneOf("store kind", kind, []string{"none", "file", "sqlite", "dynamodb"})
}

// ValidateBlobKind validates the blob store kind
func (v *Validator) ValidateBlobKind(kind string) error {
	return oneOf("blob kind", kind, []string{"none", "dir", "s3"})
}

// ValidateSchedule validates a cron expression or descriptor such as @hourly
func (v *Validator) ValidateSchedule(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// ValidateSampleRatio validates a trace sampling ratio
func (v *Validator) ValidateSampleRatio(ratio float64) error {
	if ratio <= 0 || ratio > 1 {
		return fmt.Errorf("sample ratio must be in (0, 1], got %v", ratio)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	return oneOf("log level", level, []string{"debug", "info", "warn", "error"})
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error
	add := func(err error) {
		if err != nil {
			errors = append(errors, err)
		}
	}

	// Server
	add(v.ValidatePort(cfg.Server.Port))
	if cfg.Server.RequestTimeout < 0 {
		add(fmt.Errorf("server.request_timeout must be >= 0"))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		add(fmt.Errorf("server.shutdown_timeout must be >= 0"))
	}
	if cfg.Server.RateLimit < 0 {
		add(fmt.Errorf("server.rate_limit must be >= 0"))
	}

	// Backend and adapter
	add(v.ValidateBackendKind(cfg.Backend.Kind))
	add(v.ValidateModel(cfg.Backend.DefaultModel))
	add(v.ValidateTokenProfile(cfg.Adapter.Profile))

	// Personas
	add(v.ValidatePersonaPolicy(cfg.Personas.Policy))
	if cfg.Personas.Watch && cfg.Personas.Catalog == "" {
		add(fmt.Errorf("personas.watch requires personas.catalog"))
	}
	if cfg.Personas.DebounceMs < 0 {
		add(fmt.Errorf("personas.debounce_ms must be >= 0"))
	}

	// Store
	add(v.ValidateStoreKind(cfg.Store.Kind))
	if cfg.Store.Kind == "dynamodb" && cfg.Store.Dynamo.SessionsTable == "" {
		add(fmt.Errorf("store.dynamodb.sessions_table is required for the dynamodb store"))
	}
	if cfg.Store.Retention < 0 {
		add(fmt.Errorf("store.retention must be >= 0"))
	}
	if cfg.Store.Retention > 0 {
		if cfg.Store.Kind != "file" && cfg.Store.Kind != "sqlite" {
			add(fmt.Errorf("store.retention is only supported for file and sqlite stores"))
		}
		add(v.ValidateSchedule(cfg.Store.RetentionSchedule))
	}

	// Blob
	add(v.ValidateBlobKind(cfg.Blob.Kind))
	if cfg.Blob.Kind == "s3" && cfg.Blob.Bucket == "" {
		add(fmt.Errorf("blob.bucket is required for the s3 blob store"))
	}

	// Observability
	add(v.ValidateLogLevel(cfg.Logging.Level))
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		add(fmt.Errorf("metrics.path must start with /"))
	}
	if cfg.Tracing.Enabled {
		add(v.ValidateSampleRatio(cfg.Tracing.SampleRatio))
	}

	return errors
}
