package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/harun/chatrelay/internal/observability"
	"github.com/harun/chatrelay/internal/tracing"
	"github.com/harun/chatrelay/pkg/store"
	"go.opentelemetry.io/otel/attribute"
)

// ProjectSnapshotPath is the blob path of a session's project snapshot
func ProjectSnapshotPath(sessionID string) string {
	return path.Join("projects", sessionID, "project.json")
}

// SaveProject stores the project record and its snapshot. Unlike session
// persistence, a storage failure here is the action's result.
func (d *Dispatcher) SaveProject(ctx context.Context, req ProjectRequest) (*ProjectResult, error) {
	ctx, span := tracing.StartSpan(ctx, "chatrelay.dispatch", "dispatch.save_project",
		attribute.String("session_id", req.SessionID),
	)
	defer span.End()

	if req.SessionID == "" {
		return nil, invalid("sessionId", ErrSessionRequired)
	}
	if err := store.ValidateKey(req.SessionID); err != nil {
		return nil, invalid("sessionId", err)
	}
	ctx = tracing.WithSessionID(ctx, req.SessionID)
	logger := tracing.LoggerFromContext(ctx, d.logger)

	data := req.ProjectData
	if data == nil {
		data = map[string]interface{}{}
	}
	rec := store.ProjectRecord{
		SessionID:   req.SessionID,
		ProjectData: data,
		Status:      store.ProjectStatusActive,
		RequestID:   req.RequestID,
		UpdatedAt:   d.now().UTC(),
	}

	if d.projects != nil {
		if err := d.projects.PutProject(ctx, rec); err != nil {
			tracing.FailSpan(span, err)
			observability.RecordProjectAudit(ctx, req.SessionID, "failure", map[string]interface{}{"error": err.Error()})
			return nil, fmt.Errorf("save project: %w", err)
		}
	}

	result := &ProjectResult{
		Message:   "Project data saved successfully",
		SessionID: req.SessionID,
		Status:    rec.Status,
	}

	if d.blobs != nil {
		snapshot, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode project snapshot: %w", err)
		}
		locator, err := d.blobs.Put(ctx, ProjectSnapshotPath(req.SessionID), snapshot)
		if err != nil {
			tracing.FailSpan(span, err)
			observability.RecordProjectAudit(ctx, req.SessionID, "failure", map[string]interface{}{"error": err.Error()})
			return nil, fmt.Errorf("save project snapshot: %w", err)
		}
		result.Locator = locator
	}

	observability.RecordProjectAudit(ctx, req.SessionID, "success", map[string]interface{}{
		"locator": result.Locator,
	})
	logger.Info().
		Str("locator", result.Locator).
		Msg("Project saved")
	return result, nil
}
