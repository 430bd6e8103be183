package persona

import (
	"context"
	"sync/atomic"

	"github.com/harun/chatrelay/internal/observability"
	"github.com/rs/zerolog"
)

// Config configures a Resolver
type Config struct {
	Policy      Policy
	CatalogPath string // optional YAML overlay
	Logger      zerolog.Logger
}

// Resolver maps persona tags to instructions. It is safe for concurrent use;
// Reload replaces the catalog atomically.
type Resolver struct {
	policy      Policy
	catalogPath string
	catalog     atomic.Pointer[Catalog]
	logger      zerolog.Logger
}

// NewResolver loads the catalog and returns a resolver
func NewResolver(cfg Config) (*Resolver, error) {
	policy, err := ParsePolicy(string(cfg.Policy))
	if err != nil {
		return nil, err
	}

	r := &Resolver{
		policy:      policy,
		catalogPath: cfg.CatalogPath,
		logger:      cfg.Logger.With().Str("component", "persona").Logger(),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Resolve returns the instruction for tag. An empty tag selects the default
// persona.
func (r *Resolver) Resolve(tag string) (Instruction, error) {
	c := r.catalog.Load()
	if tag == "" {
		tag = c.Default()
	}

	if inst, ok := c.lookup(tag); ok {
		return inst, nil
	}

	if r.policy == PolicyFallback {
		r.logger.Warn().
			Str("persona", tag).
			Str("fallback", c.Default()).
			Msg("Unknown persona, using default")
		inst, _ := c.lookup(c.Default())
		return inst, nil
	}

	return Instruction{}, &UnknownPersonaError{Tag: tag}
}

// Reload rebuilds the catalog from the defaults and the configured overlay.
// On error the previous catalog stays active.
func (r *Resolver) Reload() error {
	c := DefaultCatalog()
	if r.catalogPath != "" {
		loaded, err := LoadCatalog(r.catalogPath)
		if err != nil {
			observability.RecordCatalogReload(false)
			observability.RecordCatalogAudit(context.Background(), r.catalogPath, "failure", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
		c = loaded
	}

	r.catalog.Store(c)
	observability.RecordCatalogReload(true)
	if r.catalogPath != "" {
		observability.RecordCatalogAudit(context.Background(), r.catalogPath, "success", map[string]interface{}{
			"personas": c.Tags(),
		})
	}
	r.logger.Info().
		Strs("personas", c.Tags()).
		Str("default", c.Default()).
		Msg("Persona catalog loaded")
	return nil
}

// Catalog returns the active catalog
func (r *Resolver) Catalog() *Catalog {
	return r.catalog.Load()
}

// Policy returns the unknown-tag policy
func (r *Resolver) Policy() Policy {
	return r.policy
}
