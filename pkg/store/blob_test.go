package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDirBlobStorePut(t *testing.T) {
	root := t.TempDir()
	b, err := NewDirBlobStore(root, zerolog.Nop())
	require.NoError(t, err)

	locator, err := b.Put(context.Background(), "projects/sess-1/project.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "file://"))
	assert.True(t, strings.HasSuffix(locator, "projects/sess-1/project.json"))

	data, err := os.ReadFile(filepath.Join(root, "projects", "sess-1", "project.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestDirBlobStoreRejectsEscapes(t *testing.T) {
	b, err := NewDirBlobStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	for _, p := range []string{"", "/abs/path", "projects/../../etc/passwd", "projects//x"} {
		_, err := b.Put(context.Background(), p, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, "path %q", p)
	}
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestS3BlobStorePut(t *testing.T) {
	client := &mockS3{}
	var body []byte
	var captured *s3.PutObjectInput
	client.On("PutObject", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*s3.PutObjectInput)
			body, _ = io.ReadAll(captured.Body)
		}).
		Return(&s3.PutObjectOutput{}, nil)

	b, err := NewS3BlobStore(client, "relay-artifacts", "/env/prod/", zerolog.Nop())
	require.NoError(t, err)

	locator, err := b.Put(context.Background(), "projects/sess-1/project.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "s3://relay-artifacts/env/prod/projects/sess-1/project.json", locator)

	require.NotNil(t, captured)
	assert.Equal(t, "relay-artifacts", *captured.Bucket)
	assert.Equal(t, "env/prod/projects/sess-1/project.json", *captured.Key)
	assert.Equal(t, "application/json", *captured.ContentType)
	assert.Equal(t, `{"a":1}`, string(body))
}

func TestS3BlobStorePutError(t *testing.T) {
	client := &mockS3{}
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	b, err := NewS3BlobStore(client, "bucket", "", zerolog.Nop())
	require.NoError(t, err)

	_, err = b.Put(context.Background(), "projects/s/project.json", []byte("{}"))
	require.Error(t, err)
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "s3", storeErr.Store)
}

func TestNewS3BlobStoreValidation(t *testing.T) {
	_, err := NewS3BlobStore(nil, "b", "", zerolog.Nop())
	assert.Error(t, err)
	_, err = NewS3BlobStore(&mockS3{}, "", "", zerolog.Nop())
	assert.Error(t, err)
}
