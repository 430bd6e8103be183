package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/harun/chatrelay/internal/config"
	"github.com/harun/chatrelay/internal/logger"
	"github.com/harun/chatrelay/internal/observability"
	"github.com/harun/chatrelay/internal/tracing"
	"github.com/harun/chatrelay/pkg/dispatch"
	"github.com/harun/chatrelay/pkg/httpapi"
	"github.com/harun/chatrelay/pkg/persona"
	"github.com/harun/chatrelay/pkg/store"
	"github.com/rs/zerolog"
)

// Daemon runs the chat relay service: the HTTP/WebSocket API in front of the
// dispatcher plus the background persona watcher and retention sweep.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	components *Components
	dispatcher *dispatch.Dispatcher
	server     *httpapi.Server
	watcher    *persona.Watcher
	retention  *store.Retention
	lifecycle  *LifecycleManager

	listener net.Listener
	serveErr chan error

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status describes a running daemon
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
	Addr      string
}

// New builds every component named by cfg. Nothing listens until Start.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	observability.EnsureRegistered()

	d := &Daemon{
		config:   cfg,
		logger:   log,
		serveErr: make(chan error, 1),
	}
	zl := log.Zerolog()

	if cfg.Logging.AuditFile != "" {
		if err := observability.InitAuditLogger(cfg.Logging.AuditFile); err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName, cfg.Tracing.SampleRatio); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		} else {
			d.tracingEnabled = true
			log.Info().Str("service", cfg.Tracing.ServiceName).Msg("Tracing initialized")
		}
	}

	if err := d.initialize(zl); err != nil {
		d.shutdownTracing()
		if d.components != nil {
			d.components.Close()
		}
		return nil, err
	}

	return d, nil
}

func (d *Daemon) initialize(zl zerolog.Logger) error {
	cfg := d.config

	components, err := BuildComponents(context.Background(), cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to build components: %w", err)
	}
	d.components = components

	d.dispatcher, err = NewDispatcher(components, cfg, zl)
	if err != nil {
		return err
	}

	if cfg.Personas.Watch && cfg.Personas.Catalog != "" {
		d.watcher, err = persona.NewWatcher(components.Resolver, time.Duration(cfg.Personas.DebounceMs)*time.Millisecond)
		if err != nil {
			return fmt.Errorf("failed to create persona watcher: %w", err)
		}
	}

	if components.Purger != nil && cfg.Store.Retention > 0 {
		d.retention, err = store.NewRetention(components.Purger, cfg.Store.Retention, cfg.Store.RetentionSchedule, zl)
		if err != nil {
			return fmt.Errorf("failed to create retention sweep: %w", err)
		}
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	d.server, err = httpapi.NewServer(httpapi.Options{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		RequestTimeout:  seconds(cfg.Server.RequestTimeout),
		ShutdownTimeout: seconds(cfg.Server.ShutdownTimeout),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		WebSocket:       cfg.Server.WebSocket,
		RateLimit:       cfg.Server.RateLimit,
		MetricsPath:     metricsPath,
		DefaultModel:    cfg.Backend.DefaultModel,
	}, d.dispatcher, components.Resolver, zl)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	d.lifecycle = NewLifecycleManager(d)
	return nil
}

// NewDispatcher wires a dispatcher over already built components
func NewDispatcher(c *Components, cfg *config.Config, logger zerolog.Logger) (*dispatch.Dispatcher, error) {
	return dispatch.New(dispatch.Config{
		Personas:     c.Resolver,
		Invoker:      c.Invoker,
		Sessions:     c.Sessions,
		Projects:     c.Projects,
		Blobs:        c.Blobs,
		Profile:      c.Profile,
		DefaultModel: cfg.Backend.DefaultModel,
		StoreKind:    cfg.Store.Kind,
		Logger:       logger,
	})
}

// Start writes the PID file, starts background services and begins serving.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	logger := d.logger.Zerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Starting chatrelay daemon")

	addr := net.JoinHostPort(d.config.Server.Host, strconv.Itoa(d.config.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		d.setStopped()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	d.mu.Lock()
	d.listener = ln
	d.mu.Unlock()

	if err := d.lifecycle.Start(); err != nil {
		ln.Close()
		d.setStopped()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start persona watcher")
		}
	}

	if d.retention != nil {
		if err := d.retention.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start retention sweep")
		}
	}

	go func() {
		d.serveErr <- d.server.Serve(ln)
	}()

	logger.Info().
		Str("addr", ln.Addr().String()).
		Str("backend", d.config.Backend.Kind).
		Str("store", d.config.Store.Kind).
		Msg("Daemon started")
	return nil
}

func (d *Daemon) setStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// Stop drains the server and releases every component
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	logger := d.logger.Zerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Stopping chatrelay daemon")

	var errs []error
	if err := d.server.Stop(); err != nil {
		errs = append(errs, err)
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.retention != nil {
		d.retention.Stop()
	}
	if err := d.components.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close stores: %w", err))
	}
	if err := d.lifecycle.Stop(); err != nil {
		errs = append(errs, err)
	}
	d.shutdownTracing()
	if d.config.Logging.AuditFile != "" {
		if err := observability.GetAuditLogger().Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error().Err(err).Msg("Daemon stopped with errors")
		return err
	}
	logger.Info().Msg("Daemon stopped")
	return nil
}

func (d *Daemon) shutdownTracing() {
	if !d.tracingEnabled {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to flush traces")
	}
	d.tracingEnabled = false
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{Running: d.running}
	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
		if d.listener != nil {
			status.Addr = d.listener.Addr().String()
		}
	}
	return status
}

// Wait blocks until SIGINT or SIGTERM arrives or the server fails, then
// stops the daemon.
func (d *Daemon) Wait() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		d.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	case err := <-d.serveErr:
		if err != nil {
			d.logger.Error().Err(err).Msg("HTTP server failed")
			_ = d.Stop()
			return err
		}
	}

	return d.Stop()
}

// Dispatcher returns the request dispatcher
func (d *Daemon) Dispatcher() *dispatch.Dispatcher {
	return d.dispatcher
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}
