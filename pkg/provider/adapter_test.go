package provider

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/chatrelay/pkg/conversation"
)

var history = []conversation.Message{
	{Role: conversation.RoleUser, Content: "What is S3?"},
	{Role: conversation.RoleAssistant, Content: "Object storage."},
	{Role: conversation.RoleUser, Content: "And EC2?"},
}

func decode(t *testing.T, payload Payload) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &body))
	return body
}

func TestClaudeAdapter_BuildRequest(t *testing.T) {
	adapter := For("anthropic.claude-3-haiku-20240307-v1:0", StandardProfile)

	t.Run("with instruction", func(t *testing.T) {
		payload, err := adapter.BuildRequest(history, "be brief")
		require.NoError(t, err)

		body := decode(t, payload)
		assert.Equal(t, "bedrock-2023-05-31", body["anthropic_version"])
		assert.Equal(t, float64(4096), body["max_tokens"])
		assert.Equal(t, "be brief", body["system"])

		messages := body["messages"].([]interface{})
		require.Len(t, messages, 3)
		first := messages[0].(map[string]interface{})
		assert.Equal(t, "user", first["role"])
		assert.Equal(t, "What is S3?", first["content"])
	})

	t.Run("without instruction omits system", func(t *testing.T) {
		payload, err := adapter.BuildRequest(history, "")
		require.NoError(t, err)

		body := decode(t, payload)
		_, ok := body["system"]
		assert.False(t, ok)
	})

	t.Run("system turns are lifted into system field", func(t *testing.T) {
		msgs := []conversation.Message{
			{Role: conversation.RoleUser, Content: "A"},
			{Role: conversation.RoleSystem, Content: "reply in English"},
			{Role: conversation.RoleUser, Content: "B"},
		}
		payload, err := adapter.BuildRequest(msgs, "be brief")
		require.NoError(t, err)

		body := decode(t, payload)
		assert.Equal(t, "be brief\n\nreply in English", body["system"])
		messages := body["messages"].([]interface{})
		require.Len(t, messages, 1)
		assert.Equal(t, "A\n\nB", messages[0].(map[string]interface{})["content"])
	})

	t.Run("compact profile", func(t *testing.T) {
		payload, err := For("anthropic.claude-v2", CompactProfile).BuildRequest(history, "")
		require.NoError(t, err)
		assert.Equal(t, float64(4000), decode(t, payload)["max_tokens"])
	})

	t.Run("empty history", func(t *testing.T) {
		_, err := adapter.BuildRequest(nil, "x")
		assert.ErrorIs(t, err, ErrNoMessages)
	})
}

func TestClaudeAdapter_ParseResponse(t *testing.T) {
	adapter := For("anthropic.claude-3-haiku-20240307-v1:0", StandardProfile)

	body := []byte(`{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"content": [{"type": "text", "text": "EC2 is compute."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 5}
	}`)

	result, err := adapter.ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "EC2 is compute.", result.Text)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 12, result.Usage.InputTokens)
	assert.Equal(t, 5, result.Usage.OutputTokens)

	_, err = adapter.ParseResponse([]byte(`{"content": []}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = adapter.ParseResponse([]byte(`{"content": [{"type": "text"}]}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = adapter.ParseResponse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClaudeAdapter_ParseResponseMinimalBody(t *testing.T) {
	adapter := For("anthropic.claude-3-haiku-20240307-v1:0", StandardProfile)

	result, err := adapter.ParseResponse([]byte(`{"content":[{"text":"hello"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Text)
	assert.Nil(t, result.Usage)
}

func TestNovaAdapter_BuildRequest(t *testing.T) {
	adapter := For("amazon.nova-pro-v1:0", StandardProfile)

	payload, err := adapter.BuildRequest(history, "be brief")
	require.NoError(t, err)

	body := decode(t, payload)
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 3)

	first := messages[0].(map[string]interface{})
	assert.Equal(t, "user", first["role"])
	content := first["content"].([]interface{})
	require.Len(t, content, 1)
	assert.Equal(t, "What is S3?", content[0].(map[string]interface{})["text"])

	system := body["system"].([]interface{})
	require.Len(t, system, 1)
	assert.Equal(t, "be brief", system[0].(map[string]interface{})["text"])

	config := body["inferenceConfig"].(map[string]interface{})
	assert.Equal(t, float64(4096), config["max_new_tokens"])
	assert.Equal(t, 0.7, config["temperature"])
	assert.Equal(t, 0.9, config["top_p"])

	payload, err = adapter.BuildRequest(history, "")
	require.NoError(t, err)
	_, ok := decode(t, payload)["system"]
	assert.False(t, ok)
}

func TestNovaAdapter_ParseResponse(t *testing.T) {
	adapter := For("amazon.nova-lite-v1:0", StandardProfile)

	body := []byte(`{
		"output": {"message": {"role": "assistant", "content": [{"text": "Hola"}]}},
		"stopReason": "end_turn",
		"usage": {"inputTokens": 7, "outputTokens": 2, "totalTokens": 9}
	}`)

	result, err := adapter.ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "Hola", result.Text)
	assert.Equal(t, &Usage{InputTokens: 7, OutputTokens: 2}, result.Usage)

	_, err = adapter.ParseResponse([]byte(`{"output": {"message": {"content": []}}}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTitanAdapter_BuildRequest(t *testing.T) {
	adapter := For("amazon.titan-text-express-v1", StandardProfile)

	payload, err := adapter.BuildRequest(history, "ignored")
	require.NoError(t, err)

	body := decode(t, payload)
	assert.Equal(t, "And EC2?", body["inputText"])
	_, ok := body["messages"]
	assert.False(t, ok)

	config := body["textGenerationConfig"].(map[string]interface{})
	assert.Equal(t, float64(4096), config["maxTokenCount"])
	assert.Equal(t, 0.7, config["temperature"])
	assert.Equal(t, 0.9, config["topP"])

	_, err = adapter.BuildRequest(nil, "")
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestTitanAdapter_BuildRequestUsesGivenLastTurn(t *testing.T) {
	adapter := For("amazon.titan-text-express-v1", StandardProfile)
	raw := []conversation.Message{
		{Role: conversation.RoleUser, Content: "A"},
		{Role: conversation.RoleUser, Content: "B"},
	}

	payload, err := adapter.BuildRequest(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "B", decode(t, payload)["inputText"])

	payload, err = adapter.BuildRequest(conversation.Normalize(raw), "")
	require.NoError(t, err)
	assert.Equal(t, "A\n\nB", decode(t, payload)["inputText"])
}

func TestTitanAdapter_ParseResponse(t *testing.T) {
	adapter := For("amazon.titan-text-lite-v1", StandardProfile)

	body := []byte(`{
		"inputTextTokenCount": 4,
		"results": [{"tokenCount": 3, "outputText": "Compute service.", "completionReason": "FINISH"}]
	}`)

	result, err := adapter.ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "Compute service.", result.Text)
	assert.Equal(t, &Usage{InputTokens: 4, OutputTokens: 3}, result.Usage)

	_, err = adapter.ParseResponse([]byte(`{"results": []}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGenericAdapter_BuildRequest(t *testing.T) {
	adapter := For("meta.llama3-8b-instruct-v1:0", StandardProfile)

	payload, err := adapter.BuildRequest(history, "be brief")
	require.NoError(t, err)

	body := decode(t, payload)
	assert.Equal(t, float64(4000), body["max_tokens"])
	assert.Equal(t, 0.7, body["temperature"])

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 4)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "be brief", first["content"])
	assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])

	payload, err = adapter.BuildRequest(history, "")
	require.NoError(t, err)
	assert.Len(t, decode(t, payload)["messages"].([]interface{}), 3)
}

func TestGenericAdapter_ParseResponseFails(t *testing.T) {
	adapter := For("meta.llama3-8b-instruct-v1:0", StandardProfile)

	result, err := adapter.ParseResponse([]byte(`{"generation": "hello"}`))
	assert.Nil(t, result)

	var unsupported *UnsupportedBackendError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "meta.llama3-8b-instruct-v1:0", unsupported.BackendID)
}
