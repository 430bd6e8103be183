package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chatrelay.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("", zerolog.Nop())
	assert.Error(t, err)
}

func TestSQLiteStoreUpsertKeepsCreatedAt(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first := sampleRecord("s1")
	require.NoError(t, s.Put(ctx, first))

	second := first
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.UpdatedAt = first.UpdatedAt.Add(time.Hour)
	second.ModelID = "amazon.nova-pro-v1:0"
	require.NoError(t, s.Put(ctx, second))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "amazon.nova-pro-v1:0", got.ModelID)
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(second.UpdatedAt))
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "use SQS", got.Messages[3].Content)
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreProjects(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := ProjectRecord{
		SessionID:   "s1",
		ProjectData: map[string]interface{}{"name": "ledger", "services": []interface{}{"api"}},
		Status:      ProjectStatusActive,
		RequestID:   "req-9",
		UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.PutProject(ctx, rec))

	got, err := s.GetProject(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ledger", got.ProjectData["name"])
	assert.Equal(t, "req-9", got.RequestID)
	assert.True(t, got.UpdatedAt.Equal(rec.UpdatedAt))
}

func TestSQLiteStorePurgeBefore(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	old := sampleRecord("old")
	fresh := sampleRecord("fresh")
	fresh.UpdatedAt = old.UpdatedAt.Add(72 * time.Hour)
	require.NoError(t, s.Put(ctx, old))
	require.NoError(t, s.Put(ctx, fresh))

	deleted, err := s.PurgeBefore(ctx, old.UpdatedAt.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "fresh")
	assert.NoError(t, err)
}
