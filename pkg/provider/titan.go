package provider

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/harun/chatrelay/pkg/conversation"
)

type titanAdapter struct {
	profile Profile
}

type titanRequest struct {
	InputText            string                `json:"inputText"`
	TextGenerationConfig titanGenerationConfig `json:"textGenerationConfig"`
}

type titanGenerationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

func (a *titanAdapter) Family() Family {
	return FamilyTitan
}

// BuildRequest sends only the last turn as given; Titan has no conversation
// history. Callers pass the un-normalized history so merged turns do not leak
// into the prompt. The instruction text is not representable and is dropped.
func (a *titanAdapter) BuildRequest(msgs []conversation.Message, instruction string) (Payload, error) {
	last, ok := conversation.Last(msgs)
	if !ok {
		return nil, ErrNoMessages
	}

	req := titanRequest{
		InputText: last.Content,
		TextGenerationConfig: titanGenerationConfig{
			MaxTokenCount: a.profile.MaxTokens,
			Temperature:   a.profile.Temperature,
			TopP:          a.profile.TopP,
		},
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode titan request: %w", err)
	}
	return data, nil
}

// ParseResponse descends results[0].outputText
func (a *titanAdapter) ParseResponse(body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed(FamilyTitan, "body", fmt.Errorf("invalid JSON"))
	}

	text := gjson.GetBytes(body, "results.0.outputText")
	if !text.Exists() {
		return nil, malformed(FamilyTitan, "results[0].outputText", nil)
	}

	result := &Result{Text: text.String()}
	input := gjson.GetBytes(body, "inputTextTokenCount")
	output := gjson.GetBytes(body, "results.0.tokenCount")
	if input.Exists() || output.Exists() {
		result.Usage = &Usage{
			InputTokens:  int(input.Int()),
			OutputTokens: int(output.Int()),
		}
	}
	return result, nil
}
