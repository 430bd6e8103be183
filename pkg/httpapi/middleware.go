package httpapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/harun/chatrelay/internal/observability"
	"github.com/harun/chatrelay/internal/tracing"
)

const (
	headerRequestID = "X-Request-Id"
	headerTraceID   = "X-Trace-Id"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withCORS answers preflight requests and adds CORS headers to every
// response.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id, X-Trace-Id")
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (s *Server) allowOrigin(origin string) string {
	for _, allowed := range s.options.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.allowOrigin(origin) != ""
}

// instrument wraps an API route with shutdown gating, rate limiting, request
// IDs, the request timeout and HTTP metrics.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			observability.RecordHTTPRequest(route, rec.status, time.Since(start))
		}()

		if !s.begin() {
			writeError(rec, http.StatusServiceUnavailable, "server is shutting down", "")
			return
		}
		defer s.inFlightReqs.Done()

		ip := clientIP(r)
		if s.rateLimiter != nil && !s.rateLimiter.Allow(ip) {
			retryAfter := s.rateLimiter.RetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("route", route).
				Int("retry_after", retryAfter).
				Msg("Rate limit exceeded")
			rec.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(rec, http.StatusTooManyRequests, "too many requests", "")
			return
		}

		ctx := requestContext(r)
		rec.Header().Set(headerRequestID, tracing.GetRequestID(ctx))

		if s.options.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.options.RequestTimeout)
			defer cancel()
		}

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// requestContext returns r's context with trace and request IDs, taken from
// the inbound headers when the client sent them.
func requestContext(r *http.Request) context.Context {
	ctx := tracing.NewRequestContext(r.Context())
	if id := r.Header.Get(headerTraceID); id != "" {
		ctx = tracing.WithTraceID(ctx, id)
	}
	if id := r.Header.Get(headerRequestID); id != "" {
		ctx = tracing.WithRequestID(ctx, id)
	}
	return ctx
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
