package provider

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/harun/chatrelay/pkg/conversation"
)

type novaAdapter struct {
	profile Profile
}

type novaRequest struct {
	Messages        []novaMessage       `json:"messages"`
	System          []novaText          `json:"system,omitempty"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

type novaMessage struct {
	Role    conversation.Role `json:"role"`
	Content []novaText        `json:"content"`
}

type novaText struct {
	Text string `json:"text"`
}

type novaInferenceConfig struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
}

func (a *novaAdapter) Family() Family {
	return FamilyNova
}

// BuildRequest wraps every turn's content in a one-element text array
func (a *novaAdapter) BuildRequest(msgs []conversation.Message, instruction string) (Payload, error) {
	turns, system := liftSystemTurns(msgs, instruction)
	turns = conversation.Normalize(turns)
	if len(turns) == 0 {
		return nil, ErrNoMessages
	}

	req := novaRequest{
		Messages: make([]novaMessage, 0, len(turns)),
		InferenceConfig: novaInferenceConfig{
			MaxNewTokens: a.profile.MaxTokens,
			Temperature:  a.profile.Temperature,
			TopP:         a.profile.TopP,
		},
	}
	if system != "" {
		req.System = []novaText{{Text: system}}
	}
	for _, msg := range turns {
		req.Messages = append(req.Messages, novaMessage{
			Role:    msg.Role,
			Content: []novaText{{Text: msg.Content}},
		})
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode nova request: %w", err)
	}
	return data, nil
}

// ParseResponse descends output.message.content[0].text
func (a *novaAdapter) ParseResponse(body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed(FamilyNova, "body", fmt.Errorf("invalid JSON"))
	}

	text := gjson.GetBytes(body, "output.message.content.0.text")
	if !text.Exists() {
		return nil, malformed(FamilyNova, "output.message.content[0].text", nil)
	}

	result := &Result{Text: text.String()}
	usage := gjson.GetBytes(body, "usage")
	if usage.Exists() {
		result.Usage = &Usage{
			InputTokens:  int(usage.Get("inputTokens").Int()),
			OutputTokens: int(usage.Get("outputTokens").Int()),
		}
	}
	return result, nil
}
