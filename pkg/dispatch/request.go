package dispatch

import (
	"encoding/json"

	"github.com/harun/chatrelay/pkg/conversation"
	"github.com/harun/chatrelay/pkg/provider"
)

// Actions accepted in Request.Action
const (
	ActionChat              = "chat"
	ActionSaveProject       = "save_project"
	ActionGenerateDocuments = "generate_documents"
)

// Request is an inbound chat request
type Request struct {
	Messages    []conversation.Message `json:"messages"`
	ModelID     string                 `json:"modelId,omitempty"`
	Mode        string                 `json:"mode,omitempty"`
	SessionID   string                 `json:"sessionId,omitempty"`
	Action      string                 `json:"action,omitempty"`
	ProjectData map[string]interface{} `json:"projectData,omitempty"`
}

// Result is the outcome of a completed chat request
type Result struct {
	Response string          `json:"response"`
	ModelID  string          `json:"modelId"`
	Mode     string          `json:"mode"`
	Usage    *provider.Usage `json:"usage,omitempty"`

	// State is StateCompleted for every returned Result
	State State `json:"-"`
}

// Rendered is the backend request a chat request would produce
type Rendered struct {
	ModelID string          `json:"modelId"`
	Family  string          `json:"family"`
	Mode    string          `json:"mode"`
	Profile string          `json:"profile"`
	Payload json.RawMessage `json:"payload"`
}

// ProjectRequest is the input of the save_project action
type ProjectRequest struct {
	SessionID   string
	ProjectData map[string]interface{}
	RequestID   string
}

// ProjectResult is returned by a successful save_project action
type ProjectResult struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Locator   string `json:"locator,omitempty"`
}
