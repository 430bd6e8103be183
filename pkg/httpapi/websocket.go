package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/harun/chatrelay/internal/tracing"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// wsReply answers one inbound frame
type wsReply struct {
	RequestID string      `json:"requestId"`
	Status    int         `json:"status"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	Details   string      `json:"details,omitempty"`
}

// wsFrame carries the optional client correlation ID next to the request
type wsFrame struct {
	RequestID string `json:"requestId"`
}

// handleWebSocket upgrades the connection and serves frames until the client
// disconnects or the server stops. Frames on one connection are handled in
// order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down", "")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	conn.SetReadLimit(s.options.MaxBodyBytes)

	connID, err := gonanoid.New()
	if err != nil {
		connID = tracing.NewRequestID()
	}
	logger := s.logger.With().Str("conn_id", connID).Str("ip", clientIP(r)).Logger()

	s.trackConn(conn)
	logger.Info().Msg("WebSocket client connected")

	defer func() {
		s.untrackConn(conn)
		conn.Close()
		logger.Info().Msg("WebSocket client disconnected")
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		reply := s.handleFrame(msgType, data)
		if err := conn.WriteJSON(reply); err != nil {
			logger.Warn().Err(err).Str("request_id", reply.RequestID).Msg("Failed to write WebSocket reply")
			return
		}
	}
}

func (s *Server) handleFrame(msgType int, data []byte) wsReply {
	ctx := tracing.NewRequestContext(context.Background())

	var frame wsFrame
	if msgType == websocket.TextMessage {
		_ = json.Unmarshal(data, &frame)
		if frame.RequestID != "" {
			ctx = tracing.WithRequestID(ctx, frame.RequestID)
		}
	}
	reply := wsReply{RequestID: tracing.GetRequestID(ctx)}

	if msgType != websocket.TextMessage {
		reply.Status = http.StatusBadRequest
		reply.Error = "only text frames are accepted"
		return reply
	}

	if !s.begin() {
		reply.Status = http.StatusServiceUnavailable
		reply.Error = "server is shutting down"
		return reply
	}
	defer s.inFlightReqs.Done()

	req, status, err := decodeRequest(data)
	if err != nil {
		body := errorResponse(status, err)
		reply.Status, reply.Error, reply.Details = status, body.Error, body.Details
		return reply
	}

	if req.SessionID != "" {
		ctx = tracing.WithSessionID(ctx, req.SessionID)
	}
	if s.options.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.RequestTimeout)
		defer cancel()
	}

	result, err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		status := statusFor(err)
		body := errorResponse(status, err)
		reply.Status, reply.Error, reply.Details = status, body.Error, body.Details
		return reply
	}
	reply.Status = http.StatusOK
	reply.Result = result
	return reply
}
