package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/harun/chatrelay/pkg/provider"
)

// EchoInvoker answers locally without a network call, replying with the last
// turn of the request in the family's own response shape. It is meant for
// development and smoke tests.
type EchoInvoker struct {
	Prefix string
}

// Invoke echoes the last turn of payload
func (e *EchoInvoker) Invoke(ctx context.Context, backendID string, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("echo backend: payload is not valid JSON")
	}

	prefix := e.Prefix
	if prefix == "" {
		prefix = "echo: "
	}

	switch provider.ResolveFamily(backendID) {
	case provider.FamilyClaude:
		text := prefix + lastTurn(payload, "content")
		return json.Marshal(map[string]interface{}{
			"type":    "message",
			"role":    "assistant",
			"content": []map[string]string{{"type": "text", "text": text}},
			"usage":   map[string]int{"input_tokens": wordCount(payload), "output_tokens": wordCount([]byte(text))},
		})
	case provider.FamilyNova:
		text := prefix + lastTurn(payload, "content.0.text")
		return json.Marshal(map[string]interface{}{
			"output": map[string]interface{}{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": []map[string]string{{"text": text}},
				},
			},
			"usage": map[string]int{"inputTokens": wordCount(payload), "outputTokens": wordCount([]byte(text))},
		})
	case provider.FamilyTitan:
		text := prefix + gjson.GetBytes(payload, "inputText").String()
		return json.Marshal(map[string]interface{}{
			"inputTextTokenCount": wordCount(payload),
			"results":             []map[string]interface{}{{"outputText": text, "tokenCount": wordCount([]byte(text))}},
		})
	default:
		return nil, fmt.Errorf("echo backend: no response shape for %s", backendID)
	}
}

func lastTurn(payload []byte, contentPath string) string {
	n := gjson.GetBytes(payload, "messages.#").Int()
	if n == 0 {
		return ""
	}
	return gjson.GetBytes(payload, fmt.Sprintf("messages.%d.%s", n-1, contentPath)).String()
}

// wordCount is a rough token estimate
func wordCount(data []byte) int {
	return len(strings.Fields(string(data)))
}
