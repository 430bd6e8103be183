package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/chatrelay/internal/observability"
	"github.com/harun/chatrelay/pkg/dispatch"
	"github.com/harun/chatrelay/pkg/persona"
	"github.com/rs/zerolog"
)

// Dispatcher runs chat requests. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (interface{}, error)
	Render(ctx context.Context, req dispatch.Request) (*dispatch.Rendered, error)
}

// PersonaSource exposes the active persona catalog. *persona.Resolver
// implements it.
type PersonaSource interface {
	Catalog() *persona.Catalog
	Policy() persona.Policy
}

// Options configures the server
type Options struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	WebSocket       bool
	RateLimit       int // per client IP per minute, 0 disables
	MetricsPath     string
	MaxBodyBytes    int64
	DefaultModel    string // reported by /api/models
}

// Server serves the chat API
type Server struct {
	options     Options
	dispatcher  Dispatcher
	personas    PersonaSource
	server      *http.Server
	handler     http.Handler
	rateLimiter *RateLimiter
	upgrader    websocket.Upgrader
	logger      zerolog.Logger
	startTime   time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup

	conns   map[*websocket.Conn]struct{}
	connsMu sync.Mutex
}

// NewServer creates a server. It does not listen until Start is called.
func NewServer(options Options, dispatcher Dispatcher, personas PersonaSource, logger zerolog.Logger) (*Server, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if personas == nil {
		return nil, fmt.Errorf("persona source is required")
	}

	if options.Port == 0 {
		options.Port = 8080
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = 10 * time.Second
	}
	if options.MaxBodyBytes == 0 {
		options.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		options:    options,
		dispatcher: dispatcher,
		personas:   personas,
		logger:     logger.With().Str("component", "httpapi").Logger(),
		startTime:  time.Now(),
		conns:      make(map[*websocket.Conn]struct{}),
	}
	if options.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(options.RateLimit)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.handler = s.routes()

	return s, nil
}

// Handler returns the server's routes with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/chat", s.instrument("/api/chat", http.HandlerFunc(s.handleChat)))
	mux.Handle("/api/chat/render", s.instrument("/api/chat/render", http.HandlerFunc(s.handleRender)))
	mux.Handle("/api/models", s.instrument("/api/models", http.HandlerFunc(s.handleModels)))
	mux.Handle("/api/personas", s.instrument("/api/personas", http.HandlerFunc(s.handlePersonas)))
	mux.HandleFunc("/health", s.handleHealth)
	if s.options.WebSocket {
		mux.HandleFunc("/ws", s.handleWebSocket)
	}
	if s.options.MetricsPath != "" {
		mux.Handle(s.options.MetricsPath, observability.MetricsHandler())
	}
	return s.withCORS(mux)
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.options.Host, fmt.Sprintf("%d", s.options.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Stop is called
func (s *Server) Serve(ln net.Listener) error {
	s.shutdownMu.Lock()
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.shutdownMu.Unlock()

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Bool("websocket", s.options.WebSocket).
		Msg("Starting HTTP server")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop refuses new requests, waits for in-flight ones up to the shutdown
// timeout, closes WebSocket clients and shuts the listener down.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	srv := s.server
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down HTTP server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(s.options.ShutdownTimeout):
		s.logger.Warn().Dur("timeout", s.options.ShutdownTimeout).Msg("Shutdown timeout reached, forcing close")
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.closeConns()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShuttingDown
}

// begin registers an in-flight request. It returns false once Stop has been
// called.
func (s *Server) begin() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	if s.isShuttingDown {
		return false
	}
	s.inFlightReqs.Add(1)
	return true
}

func (s *Server) trackConn(conn *websocket.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
	observability.AddWebSocketConnections(1)
}

func (s *Server) untrackConn(conn *websocket.Conn) {
	s.connsMu.Lock()
	_, ok := s.conns[conn]
	delete(s.conns, conn)
	s.connsMu.Unlock()
	if ok {
		observability.AddWebSocketConnections(-1)
	}
}

func (s *Server) closeConns() {
	s.connsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.Close()
	}
}
