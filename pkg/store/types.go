package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harun/chatrelay/pkg/conversation"
)

// StoredMessage is one persisted conversation turn.
type StoredMessage struct {
	ID        string            `json:"id"`
	Role      conversation.Role `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
}

// SessionRecord is the full history of a session after one exchange.
type SessionRecord struct {
	SessionID string          `json:"sessionId"`
	Messages  []StoredMessage `json:"messages"`
	Persona   string          `json:"persona"`
	ModelID   string          `json:"modelId"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewSessionRecord builds the record written after a completed exchange:
// the history as received followed by the assistant reply.
func NewSessionRecord(sessionID string, history []conversation.Message, reply, persona, modelID string, now time.Time) SessionRecord {
	now = now.UTC()
	messages := make([]StoredMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, StoredMessage{
			ID:        uuid.New().String(),
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: now,
		})
	}
	messages = append(messages, StoredMessage{
		ID:        uuid.New().String(),
		Role:      conversation.RoleAssistant,
		Content:   reply,
		Timestamp: now,
	})

	return SessionRecord{
		SessionID: sessionID,
		Messages:  messages,
		Persona:   persona,
		ModelID:   modelID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Project statuses
const (
	ProjectStatusActive = "active"
)

// ProjectRecord is the result of a save_project action.
type ProjectRecord struct {
	SessionID   string                 `json:"sessionId"`
	ProjectData map[string]interface{} `json:"projectData"`
	Status      string                 `json:"status"`
	RequestID   string                 `json:"requestId,omitempty"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// SessionStore persists session records.
type SessionStore interface {
	Put(ctx context.Context, rec SessionRecord) error
}

// ProjectStore persists project records.
type ProjectStore interface {
	PutProject(ctx context.Context, rec ProjectRecord) error
}

// BlobStore writes opaque documents and returns a locator for them.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte) (string, error)
}

// Purger removes session records last written before cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}
