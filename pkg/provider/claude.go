package provider

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	"github.com/harun/chatrelay/pkg/conversation"
)

// bedrockAnthropicVersion is the protocol tag Bedrock requires for Claude
const bedrockAnthropicVersion = "bedrock-2023-05-31"

type claudeAdapter struct {
	profile Profile
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      float64         `json:"temperature"`
	TopP             float64         `json:"top_p"`
}

type claudeMessage struct {
	Role    conversation.Role `json:"role"`
	Content string            `json:"content"`
}

func (a *claudeAdapter) Family() Family {
	return FamilyClaude
}

// BuildRequest sends the full history with plain-text content
func (a *claudeAdapter) BuildRequest(msgs []conversation.Message, instruction string) (Payload, error) {
	turns, system := liftSystemTurns(msgs, instruction)
	turns = conversation.Normalize(turns)
	if len(turns) == 0 {
		return nil, ErrNoMessages
	}

	req := claudeRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        a.profile.MaxTokens,
		System:           system,
		Messages:         make([]claudeMessage, 0, len(turns)),
		Temperature:      a.profile.Temperature,
		TopP:             a.profile.TopP,
	}
	for _, msg := range turns {
		req.Messages = append(req.Messages, claudeMessage{Role: msg.Role, Content: msg.Content})
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode claude request: %w", err)
	}
	return data, nil
}

// ParseResponse reads content[0].text from the Messages API body Bedrock
// returns verbatim. Block types other than text are not inspected.
func (a *claudeAdapter) ParseResponse(body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed(FamilyClaude, "body", fmt.Errorf("invalid JSON"))
	}

	text := gjson.GetBytes(body, "content.0.text")
	if !text.Exists() {
		return nil, malformed(FamilyClaude, "content[0].text", nil)
	}
	result := &Result{Text: text.String()}

	raw := gjson.GetBytes(body, "usage")
	if !raw.IsObject() {
		return result, nil
	}
	var usage anthropic.Usage
	if err := json.Unmarshal([]byte(raw.Raw), &usage); err != nil {
		return nil, malformed(FamilyClaude, "usage", err)
	}
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		result.Usage = &Usage{
			InputTokens:  int(usage.InputTokens),
			OutputTokens: int(usage.OutputTokens),
		}
	}
	return result, nil
}
