package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harun/chatrelay/pkg/conversation"
	"github.com/harun/chatrelay/pkg/provider"
)

type mockBedrock struct {
	mock.Mock
}

func (m *mockBedrock) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*bedrockruntime.InvokeModelOutput)
	return out, args.Error(1)
}

func TestBedrockInvoker_Invoke(t *testing.T) {
	client := &mockBedrock{}
	invoker := NewBedrockInvokerWithClient(client, zerolog.Nop())

	payload := []byte(`{"inputText":"hi"}`)
	client.On("InvokeModel", mock.Anything, mock.MatchedBy(func(in *bedrockruntime.InvokeModelInput) bool {
		return aws.ToString(in.ModelId) == "amazon.titan-text-lite-v1" &&
			aws.ToString(in.ContentType) == "application/json" &&
			string(in.Body) == string(payload)
	})).Return(&bedrockruntime.InvokeModelOutput{Body: []byte(`{"results":[]}`)}, nil)

	body, err := invoker.Invoke(context.Background(), "amazon.titan-text-lite-v1", payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[]}`, string(body))
	client.AssertExpectations(t)
}

func TestBedrockInvoker_InvokeError(t *testing.T) {
	client := &mockBedrock{}
	invoker := NewBedrockInvokerWithClient(client, zerolog.Nop())

	cause := errors.New("ThrottlingException")
	client.On("InvokeModel", mock.Anything, mock.Anything).Return(nil, cause)

	_, err := invoker.Invoke(context.Background(), "amazon.nova-pro-v1:0", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "amazon.nova-pro-v1:0")
}

func TestEchoInvoker_RoundTripsThroughAdapters(t *testing.T) {
	msgs := []conversation.Message{
		{Role: conversation.RoleUser, Content: "first"},
		{Role: conversation.RoleAssistant, Content: "ok"},
		{Role: conversation.RoleUser, Content: "hello there"},
	}
	echo := &EchoInvoker{}

	for _, id := range []string{
		"anthropic.claude-3-haiku-20240307-v1:0",
		"amazon.nova-pro-v1:0",
		"amazon.titan-text-express-v1",
	} {
		t.Run(id, func(t *testing.T) {
			adapter := provider.For(id, provider.StandardProfile)
			payload, err := adapter.BuildRequest(msgs, "instruction")
			require.NoError(t, err)

			body, err := echo.Invoke(context.Background(), id, payload)
			require.NoError(t, err)

			result, err := adapter.ParseResponse(body)
			require.NoError(t, err)
			assert.Equal(t, "echo: hello there", result.Text)
			assert.NotNil(t, result.Usage)
		})
	}
}

func TestEchoInvoker_Errors(t *testing.T) {
	echo := &EchoInvoker{}

	_, err := echo.Invoke(context.Background(), "meta.llama3", []byte(`{}`))
	assert.Error(t, err)

	_, err = echo.Invoke(context.Background(), "amazon.nova-pro-v1:0", []byte(`nope`))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = echo.Invoke(ctx, "amazon.nova-pro-v1:0", []byte(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvokerFunc(t *testing.T) {
	var inv Invoker = InvokerFunc(func(ctx context.Context, id string, payload []byte) ([]byte, error) {
		return append([]byte(id+":"), payload...), nil
	})
	out, err := inv.Invoke(context.Background(), "m", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "m:x", string(out))
}
