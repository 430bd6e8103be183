package provider

import (
	"strings"

	"github.com/harun/chatrelay/pkg/conversation"
)

// Adapter translates between the internal message model and one backend family
type Adapter interface {
	// Family returns the wire-format family this adapter speaks
	Family() Family

	// BuildRequest renders the backend request body. An empty instruction means
	// the persona has no instruction text.
	BuildRequest(msgs []conversation.Message, instruction string) (Payload, error)

	// ParseResponse extracts the generated text from a backend response body
	ParseResponse(body []byte) (*Result, error)
}

// Payload is an encoded backend request body
type Payload []byte

// Usage reports token consumption when the backend returns it
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Result is a normalized backend response
type Result struct {
	Text  string `json:"text"`
	Usage *Usage `json:"usage,omitempty"`
}

// For returns the adapter for backendID using the given generation profile.
func For(backendID string, profile Profile) Adapter {
	switch ResolveFamily(backendID) {
	case FamilyClaude:
		return &claudeAdapter{profile: profile}
	case FamilyNova:
		return &novaAdapter{profile: profile}
	case FamilyTitan:
		return &titanAdapter{profile: profile}
	default:
		return &genericAdapter{backendID: backendID, profile: profile}
	}
}

// liftSystemTurns moves system-role turns out of the history and appends their
// text to the instruction. Claude and Nova reject the system role inside
// messages and take it as a top-level field instead.
func liftSystemTurns(msgs []conversation.Message, instruction string) ([]conversation.Message, string) {
	parts := []string{}
	if instruction != "" {
		parts = append(parts, instruction)
	}

	kept := make([]conversation.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == conversation.RoleSystem {
			if msg.Content != "" {
				parts = append(parts, msg.Content)
			}
			continue
		}
		kept = append(kept, msg)
	}

	return kept, strings.Join(parts, "\n\n")
}
