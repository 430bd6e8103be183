package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harun/chatrelay/internal/tracing"
	"github.com/harun/chatrelay/pkg/dispatch"
	"github.com/harun/chatrelay/pkg/provider"
)

// internalErrorMessage is the client-facing text of every 500 response
const internalErrorMessage = "Internal server error"

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type personaView struct {
	Tag            string `json:"tag"`
	TokenProfile   string `json:"tokenProfile,omitempty"`
	HasInstruction bool   `json:"hasInstruction"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

// errorResponse builds the error body for err. Server-side failures carry a
// fixed message with the cause in details; schema violations are joined into
// details.
func errorResponse(status int, err error) errorBody {
	var se *SchemaError
	switch {
	case errors.As(err, &se):
		return errorBody{Error: err.Error(), Details: strings.Join(se.Details, "; ")}
	case status == http.StatusGatewayTimeout:
		return errorBody{Error: "Request timed out", Details: err.Error()}
	case status >= http.StatusInternalServerError:
		return errorBody{Error: internalErrorMessage, Details: err.Error()}
	default:
		return errorBody{Error: err.Error()}
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse(status, err))
}

// statusFor maps dispatcher errors to HTTP status codes. A request that ran
// out of time is reported as a gateway timeout rather than a server error.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return dispatch.StatusFor(err)
}

// decodeRequest reads, schema-checks and decodes a request body. It returns
// the HTTP status and error details on failure.
func decodeRequest(body []byte) (dispatch.Request, int, error) {
	var req dispatch.Request
	if err := validateRequest(body); err != nil {
		return req, http.StatusBadRequest, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)
	}
	return req, http.StatusOK, nil
}

func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (dispatch.Request, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return dispatch.Request{}, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return dispatch.Request{}, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body", "")
		return dispatch.Request{}, false
	}

	req, status, err := decodeRequest(body)
	if err != nil {
		writeErr(w, status, err)
		return dispatch.Request{}, false
	}
	return req, true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if req.SessionID != "" {
		ctx = tracing.WithSessionID(ctx, req.SessionID)
	}
	logger := tracing.LoggerFromContext(ctx, s.logger)
	logger.Debug().
		Str("action", req.Action).
		Str("model_id", req.ModelID).
		Int("messages", len(req.Messages)).
		Msg("Chat request received")

	result, err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		status := statusFor(err)
		logger.Debug().Err(err).Int("status", status).Msg("Chat request failed")
		writeErr(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	rendered, err := s.dispatcher.Render(r.Context(), req)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  provider.Models,
		"default": s.options.DefaultModel,
	})
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	catalog := s.personas.Catalog()
	instructions := catalog.Instructions()
	views := make([]personaView, 0, len(instructions))
	for _, inst := range instructions {
		views = append(views, personaView{
			Tag:            inst.Tag,
			TokenProfile:   inst.TokenProfile,
			HasInstruction: inst.HasText(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"personas": views,
		"default":  catalog.Default(),
		"policy":   string(s.personas.Policy()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	status, code := "ok", http.StatusOK
	if s.shuttingDown() {
		status, code = "shutting_down", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"uptime":    time.Since(s.startTime).Seconds(),
		"timestamp": time.Now().UnixMilli(),
	})
}
