package provider

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/harun/chatrelay/pkg/conversation"
)

// genericAdapter renders a chat-completions style body for ids outside the
// known families. Its responses are never parsed.
type genericAdapter struct {
	backendID string
	profile   Profile
}

func (a *genericAdapter) Family() Family {
	return FamilyGeneric
}

// BuildRequest prepends the instruction as a system turn and sends a flat
// max_tokens/temperature pair.
func (a *genericAdapter) BuildRequest(msgs []conversation.Message, instruction string) (Payload, error) {
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if instruction != "" {
		messages = append(messages, openai.SystemMessage(instruction))
	}
	for _, msg := range msgs {
		switch msg.Role {
		case conversation.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case conversation.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case conversation.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		default:
			return nil, fmt.Errorf("unsupported role %q for generic backend", msg.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		MaxTokens:   openai.Int(int64(a.profile.GenericMaxTokens)),
		Temperature: openai.Float(a.profile.Temperature),
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generic request: %w", err)
	}
	return data, nil
}

// ParseResponse always fails: an unmatched id has no known response shape.
func (a *genericAdapter) ParseResponse(body []byte) (*Result, error) {
	return nil, &UnsupportedBackendError{BackendID: a.backendID}
}
