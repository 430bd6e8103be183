package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/harun/chatrelay/internal/observability"
	"github.com/harun/chatrelay/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const dynamoKind = "dynamodb"

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoConfig names the tables and their partition keys.
type DynamoConfig struct {
	SessionsTable string
	SessionsKey   string // default "id"
	ProjectsTable string
	ProjectsKey   string // default "sessionId"
}

// DynamoStore writes sessions and projects as DynamoDB items.
type DynamoStore struct {
	client DynamoAPI
	cfg    DynamoConfig
	logger zerolog.Logger
}

type dynamoMessage struct {
	ID        string `dynamodbav:"id"`
	Role      string `dynamodbav:"role"`
	Content   string `dynamodbav:"content"`
	Timestamp string `dynamodbav:"timestamp"`
}

type dynamoSession struct {
	Messages  []dynamoMessage `dynamodbav:"messages"`
	Persona   string          `dynamodbav:"persona"`
	ModelID   string          `dynamodbav:"modelId"`
	CreatedAt string          `dynamodbav:"createdAt"`
	UpdatedAt string          `dynamodbav:"updatedAt"`
}

type dynamoProject struct {
	ProjectData map[string]interface{} `dynamodbav:"projectData"`
	Status      string                 `dynamodbav:"status"`
	RequestID   string                 `dynamodbav:"requestId,omitempty"`
	UpdatedAt   string                 `dynamodbav:"updatedAt"`
}

// NewDynamoStore creates a store over an existing DynamoDB client.
func NewDynamoStore(client DynamoAPI, cfg DynamoConfig, logger zerolog.Logger) (*DynamoStore, error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if cfg.SessionsTable == "" {
		return nil, errors.New("sessions table is required")
	}
	if cfg.SessionsKey == "" {
		cfg.SessionsKey = "id"
	}
	if cfg.ProjectsKey == "" {
		cfg.ProjectsKey = "sessionId"
	}

	return &DynamoStore{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "dynamo_store").Logger(),
	}, nil
}

// NewDynamoStoreFromConfig builds the DynamoDB client from an AWS config.
func NewDynamoStoreFromConfig(awsCfg aws.Config, cfg DynamoConfig, logger zerolog.Logger) (*DynamoStore, error) {
	return NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg, logger)
}

// Put writes the session item, replacing any previous version.
func (d *DynamoStore) Put(ctx context.Context, rec SessionRecord) error {
	ctx, span := tracing.StartSpan(ctx, "chatrelay.store", "store.put",
		attribute.String("store", dynamoKind),
		attribute.String("key", rec.SessionID),
	)
	defer span.End()
	start := time.Now()
	defer func() { observability.RecordStorePut(dynamoKind, time.Since(start)) }()

	if rec.SessionID == "" {
		err := fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
		tracing.FailSpan(span, err)
		return storeErr(dynamoKind, "put", rec.SessionID, err)
	}

	item := dynamoSession{
		Messages:  make([]dynamoMessage, 0, len(rec.Messages)),
		Persona:   rec.Persona,
		ModelID:   rec.ModelID,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, m := range rec.Messages {
		item.Messages = append(item.Messages, dynamoMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}

	if err := d.putItem(ctx, d.cfg.SessionsTable, d.cfg.SessionsKey, rec.SessionID, item); err != nil {
		tracing.FailSpan(span, err)
		return storeErr(dynamoKind, "put", rec.SessionID, err)
	}

	logger := tracing.LoggerFromContext(ctx, d.logger)
	logger.Debug().
		Str("table", d.cfg.SessionsTable).
		Str("session_id", rec.SessionID).
		Msg("Session item written")
	return nil
}

// PutProject writes the project item.
func (d *DynamoStore) PutProject(ctx context.Context, rec ProjectRecord) error {
	if d.cfg.ProjectsTable == "" {
		return storeErr(dynamoKind, "put_project", rec.SessionID, errors.New("projects table is not configured"))
	}
	if rec.SessionID == "" {
		return storeErr(dynamoKind, "put_project", rec.SessionID, fmt.Errorf("%w: key cannot be empty", ErrInvalidKey))
	}

	item := dynamoProject{
		ProjectData: rec.ProjectData,
		Status:      rec.Status,
		RequestID:   rec.RequestID,
		UpdatedAt:   rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := d.putItem(ctx, d.cfg.ProjectsTable, d.cfg.ProjectsKey, rec.SessionID, item); err != nil {
		return storeErr(dynamoKind, "put_project", rec.SessionID, err)
	}
	return nil
}

func (d *DynamoStore) putItem(ctx context.Context, table, keyAttr, key string, v interface{}) error {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	av[keyAttr] = &types.AttributeValueMemberS{Value: key}

	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put item into %s: %w", table, err)
	}
	return nil
}
