package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harun/chatrelay/internal/observability"
	"github.com/harun/chatrelay/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	sessionsDir = "sessions"
	projectsDir = "projects"
	fileKind    = "file"
)

// FileStore keeps one JSON document per session and per project under a
// root directory.
type FileStore struct {
	root       string
	logger     zerolog.Logger
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewFileStore creates the directory layout under root.
func NewFileStore(root string, logger zerolog.Logger) (*FileStore, error) {
	if root == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		root = filepath.Join(homeDir, ".chatrelay", "data")
	}

	for _, dir := range []string{sessionsDir, projectsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0700); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	fs := &FileStore{
		root:       root,
		logger:     logger.With().Str("component", "file_store").Logger(),
		writeLocks: make(map[string]*sync.Mutex),
	}
	fs.logger.Info().Str("dir", root).Msg("File store initialized")
	return fs, nil
}

func (fs *FileStore) path(kind, key string) string {
	return filepath.Join(fs.root, kind, key+".json")
}

func (fs *FileStore) lockFor(kind, key string) *sync.Mutex {
	fs.locksMu.Lock()
	defer fs.locksMu.Unlock()

	id := kind + "/" + key
	if lock, ok := fs.writeLocks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	fs.writeLocks[id] = lock
	return lock
}

func (fs *FileStore) releaseLock(kind, key string) {
	fs.locksMu.Lock()
	defer fs.locksMu.Unlock()
	delete(fs.writeLocks, kind+"/"+key)
}

// Put writes the session record, replacing any previous version.
func (fs *FileStore) Put(ctx context.Context, rec SessionRecord) error {
	return fs.put(ctx, sessionsDir, rec.SessionID, rec)
}

// PutProject writes the project record, replacing any previous version.
func (fs *FileStore) PutProject(ctx context.Context, rec ProjectRecord) error {
	return fs.put(ctx, projectsDir, rec.SessionID, rec)
}

func (fs *FileStore) put(ctx context.Context, kind, key string, v interface{}) error {
	ctx, span := tracing.StartSpan(ctx, "chatrelay.store", "store.put",
		attribute.String("store", fileKind),
		attribute.String("kind", kind),
		attribute.String("key", key),
	)
	defer span.End()
	start := time.Now()
	defer func() { observability.RecordStorePut(fileKind, time.Since(start)) }()

	if err := ValidateKey(key); err != nil {
		tracing.FailSpan(span, err)
		return storeErr(fileKind, "put", key, err)
	}
	if err := ctx.Err(); err != nil {
		return storeErr(fileKind, "put", key, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		tracing.FailSpan(span, err)
		return storeErr(fileKind, "put", key, fmt.Errorf("failed to marshal record: %w", err))
	}

	lock := fs.lockFor(kind, key)
	lock.Lock()
	defer lock.Unlock()

	if err := writeFileAtomic(fs.path(kind, key), data); err != nil {
		tracing.FailSpan(span, err)
		return storeErr(fileKind, "put", key, err)
	}

	logger := tracing.LoggerFromContext(ctx, fs.logger)
	logger.Debug().
		Str("kind", kind).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Record written")
	return nil
}

// Get reads a session record back. Used by the CLI, not the request path.
func (fs *FileStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if err := ValidateKey(sessionID); err != nil {
		return nil, storeErr(fileKind, "get", sessionID, err)
	}

	data, err := os.ReadFile(fs.path(sessionsDir, sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storeErr(fileKind, "get", sessionID, ErrNotFound)
		}
		return nil, storeErr(fileKind, "get", sessionID, err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storeErr(fileKind, "get", sessionID, fmt.Errorf("failed to decode record: %w", err))
	}
	return &rec, nil
}

// PurgeBefore deletes session files last modified before cutoff.
func (fs *FileStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	dir := filepath.Join(fs.root, sessionsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, storeErr(fileKind, "purge", dir, err)
	}

	deleted := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			fs.logger.Warn().Err(err).Str("file", name).Msg("Failed to stat session file")
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		key := strings.TrimSuffix(name, ".json")
		lock := fs.lockFor(sessionsDir, key)
		lock.Lock()
		err = os.Remove(filepath.Join(dir, name))
		lock.Unlock()
		fs.releaseLock(sessionsDir, key)

		if err != nil && !errors.Is(err, os.ErrNotExist) {
			fs.logger.Error().Err(err).Str("session_id", key).Msg("Failed to delete session")
			continue
		}
		deleted++
	}

	return deleted, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
