package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPropagateToLogger(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-123")
	ctx = WithRequestID(ctx, "req-456")
	ctx = WithSessionID(ctx, "session-abc")
	ctx = WithBackendID(ctx, "anthropic.claude-3-haiku-20240307-v1:0")

	var buf bytes.Buffer
	logger := PropagateToLogger(ctx, zerolog.New(&buf))
	logger.Info().Msg("test message")

	output := buf.String()
	for _, want := range []string{"trace-123", "req-456", "session-abc", "claude-3-haiku"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in log output: %s", want, output)
		}
	}
}

func TestLoggerFromContextWithoutValues(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggerFromContext(context.Background(), zerolog.New(&buf))
	logger.Info().Msg("test")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("Unexpected trace_id field: %s", buf.String())
	}
}

func TestDetach(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	parent = WithTraceID(parent, "trace-detached")
	parent = WithSessionID(parent, "sess-9")

	<-parent.Done()
	detached := Detach(parent)

	if detached.Err() != nil {
		t.Fatalf("Detached context should not be cancelled: %v", detached.Err())
	}
	if GetTraceID(detached) != "trace-detached" {
		t.Error("Trace ID not carried over")
	}
	if GetSessionID(detached) != "sess-9" {
		t.Error("Session ID not carried over")
	}
}
