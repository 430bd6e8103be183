package backend

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rs/zerolog"
)

const contentTypeJSON = "application/json"

// BedrockAPI is the subset of the Bedrock runtime client used here
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockInvoker calls InvokeModel on Amazon Bedrock
type BedrockInvoker struct {
	client BedrockAPI
	logger zerolog.Logger
}

// NewBedrockInvoker creates an invoker from an AWS config. A non-empty
// endpoint overrides the service endpoint.
func NewBedrockInvoker(cfg aws.Config, endpoint string, logger zerolog.Logger) *BedrockInvoker {
	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewBedrockInvokerWithClient(client, logger)
}

// NewBedrockInvokerWithClient wraps an existing client
func NewBedrockInvokerWithClient(client BedrockAPI, logger zerolog.Logger) *BedrockInvoker {
	return &BedrockInvoker{
		client: client,
		logger: logger.With().Str("component", "bedrock").Logger(),
	}
}

// Invoke sends payload to the model identified by backendID
func (b *BedrockInvoker) Invoke(ctx context.Context, backendID string, payload []byte) ([]byte, error) {
	b.logger.Debug().
		Str("model_id", backendID).
		Int("payload_bytes", len(payload)).
		Msg("Invoking model")

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(backendID),
		Body:        payload,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke %s: %w", backendID, err)
	}

	return out.Body, nil
}
