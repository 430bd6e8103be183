package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/harun/chatrelay/internal/awsutil"
	"github.com/harun/chatrelay/internal/config"
	"github.com/harun/chatrelay/pkg/backend"
	"github.com/harun/chatrelay/pkg/persona"
	"github.com/harun/chatrelay/pkg/provider"
	"github.com/harun/chatrelay/pkg/store"
	"github.com/rs/zerolog"
)

// Components is the dispatcher's dependency graph built from a Config.
// Optional stores are nil interfaces, never typed nils.
type Components struct {
	Resolver *persona.Resolver
	Invoker  backend.Invoker
	Sessions store.SessionStore
	Projects store.ProjectStore
	Blobs    store.BlobStore
	Purger   store.Purger
	Profile  provider.Profile

	closers []func() error
}

// Close releases store handles
func (c *Components) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// awsLoader loads the shared AWS config at most once per build
type awsLoader struct {
	opts awsutil.Options
	once sync.Once
	cfg  aws.Config
	err  error
}

var loadAWSConfig = awsutil.LoadConfig

func (l *awsLoader) get(ctx context.Context) (aws.Config, error) {
	l.once.Do(func() {
		l.cfg, l.err = loadAWSConfig(ctx, l.opts)
	})
	return l.cfg, l.err
}

// BuildComponents creates every dispatcher dependency named by cfg. The AWS
// config is only loaded when a component needs it.
func BuildComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Components, error) {
	loader := &awsLoader{opts: awsutil.Options{Region: cfg.Backend.Region, Profile: cfg.Backend.Profile}}
	c := &Components{}

	policy, err := persona.ParsePolicy(cfg.Personas.Policy)
	if err != nil {
		return nil, err
	}
	c.Resolver, err = persona.NewResolver(persona.Config{
		Policy:      policy,
		CatalogPath: cfg.Personas.Catalog,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load persona catalog: %w", err)
	}

	c.Profile, err = provider.ProfileByName(cfg.Adapter.Profile)
	if err != nil {
		return nil, err
	}

	c.Invoker, err = buildInvoker(ctx, cfg.Backend, loader, logger)
	if err != nil {
		return nil, err
	}

	if err := c.buildStore(ctx, cfg.Store, loader, logger); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.buildBlobs(ctx, cfg.Blob, loader, logger); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func buildInvoker(ctx context.Context, cfg config.BackendConfig, loader *awsLoader, logger zerolog.Logger) (backend.Invoker, error) {
	switch cfg.Kind {
	case "echo":
		return &backend.EchoInvoker{Prefix: cfg.EchoPrefix}, nil
	case "", "bedrock":
		awsCfg, err := loader.get(ctx)
		if err != nil {
			return nil, err
		}
		return backend.NewBedrockInvoker(awsCfg, cfg.Endpoint, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend kind: %s", cfg.Kind)
	}
}

func (c *Components) buildStore(ctx context.Context, cfg config.StoreConfig, loader *awsLoader, logger zerolog.Logger) error {
	switch cfg.Kind {
	case "", "none":
		return nil
	case "file":
		fs, err := store.NewFileStore(cfg.Dir, logger)
		if err != nil {
			return err
		}
		c.Sessions, c.Projects, c.Purger = fs, fs, fs
	case "sqlite":
		ss, err := store.NewSQLiteStore(cfg.SQLitePath, logger)
		if err != nil {
			return err
		}
		c.Sessions, c.Projects, c.Purger = ss, ss, ss
		c.closers = append(c.closers, ss.Close)
	case "dynamodb":
		awsCfg, err := loader.get(ctx)
		if err != nil {
			return err
		}
		ds, err := store.NewDynamoStoreFromConfig(awsCfg, store.DynamoConfig{
			SessionsTable: cfg.Dynamo.SessionsTable,
			SessionsKey:   cfg.Dynamo.SessionsKey,
			ProjectsTable: cfg.Dynamo.ProjectsTable,
			ProjectsKey:   cfg.Dynamo.ProjectsKey,
		}, logger)
		if err != nil {
			return err
		}
		c.Sessions, c.Projects = ds, ds
	default:
		return fmt.Errorf("unknown store kind: %s", cfg.Kind)
	}
	return nil
}

func (c *Components) buildBlobs(ctx context.Context, cfg config.BlobConfig, loader *awsLoader, logger zerolog.Logger) error {
	switch cfg.Kind {
	case "", "none":
		return nil
	case "dir":
		bs, err := store.NewDirBlobStore(cfg.Dir, logger)
		if err != nil {
			return err
		}
		c.Blobs = bs
	case "s3":
		awsCfg, err := loader.get(ctx)
		if err != nil {
			return err
		}
		bs, err := store.NewS3BlobStoreFromConfig(awsCfg, cfg.Bucket, cfg.Prefix, logger)
		if err != nil {
			return err
		}
		c.Blobs = bs
	default:
		return fmt.Errorf("unknown blob kind: %s", cfg.Kind)
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
