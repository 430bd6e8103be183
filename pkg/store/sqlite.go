package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harun/chatrelay/internal/observability"
	"github.com/harun/chatrelay/internal/tracing"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const sqliteKind = "sqlite"

// SQLiteStore keeps sessions and projects in a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path in WAL mode.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "sqlite_store").Logger(),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("SQLite store initialized")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			persona TEXT NOT NULL,
			model_id TEXT NOT NULL,
			messages TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

		CREATE TABLE IF NOT EXISTS projects (
			session_id TEXT PRIMARY KEY,
			project_data TEXT NOT NULL,
			status TEXT NOT NULL,
			request_id TEXT,
			updated_at INTEGER NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put upserts the session record. The first write's created_at is kept.
func (s *SQLiteStore) Put(ctx context.Context, rec SessionRecord) error {
	ctx, span := tracing.StartSpan(ctx, "chatrelay.store", "store.put",
		attribute.String("store", sqliteKind),
		attribute.String("key", rec.SessionID),
	)
	defer span.End()
	start := time.Now()
	defer func() { observability.RecordStorePut(sqliteKind, time.Since(start)) }()

	if err := ValidateKey(rec.SessionID); err != nil {
		tracing.FailSpan(span, err)
		return storeErr(sqliteKind, "put", rec.SessionID, err)
	}

	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		tracing.FailSpan(span, err)
		return storeErr(sqliteKind, "put", rec.SessionID, fmt.Errorf("failed to marshal messages: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, persona, model_id, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			persona = excluded.persona,
			model_id = excluded.model_id,
			messages = excluded.messages,
			updated_at = excluded.updated_at`,
		rec.SessionID, rec.Persona, rec.ModelID, string(messages),
		rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		tracing.FailSpan(span, err)
		return storeErr(sqliteKind, "put", rec.SessionID, err)
	}

	logger := tracing.LoggerFromContext(ctx, s.logger)
	logger.Debug().
		Str("session_id", rec.SessionID).
		Int("messages", len(rec.Messages)).
		Msg("Session upserted")
	return nil
}

// PutProject upserts the project record.
func (s *SQLiteStore) PutProject(ctx context.Context, rec ProjectRecord) error {
	ctx, span := tracing.StartSpan(ctx, "chatrelay.store", "store.put_project",
		attribute.String("store", sqliteKind),
		attribute.String("key", rec.SessionID),
	)
	defer span.End()

	if err := ValidateKey(rec.SessionID); err != nil {
		tracing.FailSpan(span, err)
		return storeErr(sqliteKind, "put_project", rec.SessionID, err)
	}

	data, err := json.Marshal(rec.ProjectData)
	if err != nil {
		tracing.FailSpan(span, err)
		return storeErr(sqliteKind, "put_project", rec.SessionID, fmt.Errorf("failed to marshal project data: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (session_id, project_data, status, request_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			project_data = excluded.project_data,
			status = excluded.status,
			request_id = excluded.request_id,
			updated_at = excluded.updated_at`,
		rec.SessionID, string(data), rec.Status, rec.RequestID, rec.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		tracing.FailSpan(span, err)
		return storeErr(sqliteKind, "put_project", rec.SessionID, err)
	}
	return nil
}

// Get reads a session record back.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var (
		rec       SessionRecord
		messages  string
		createdAt int64
		updatedAt int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, persona, model_id, messages, created_at, updated_at
		FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&rec.SessionID, &rec.Persona, &rec.ModelID, &messages, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storeErr(sqliteKind, "get", sessionID, ErrNotFound)
		}
		return nil, storeErr(sqliteKind, "get", sessionID, err)
	}

	if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
		return nil, storeErr(sqliteKind, "get", sessionID, fmt.Errorf("failed to decode messages: %w", err))
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &rec, nil
}

// GetProject reads a project record back.
func (s *SQLiteStore) GetProject(ctx context.Context, sessionID string) (*ProjectRecord, error) {
	var (
		rec       ProjectRecord
		data      string
		requestID sql.NullString
		updatedAt int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, project_data, status, request_id, updated_at
		FROM projects WHERE session_id = ?`, sessionID,
	).Scan(&rec.SessionID, &data, &rec.Status, &requestID, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storeErr(sqliteKind, "get_project", sessionID, ErrNotFound)
		}
		return nil, storeErr(sqliteKind, "get_project", sessionID, err)
	}

	if err := json.Unmarshal([]byte(data), &rec.ProjectData); err != nil {
		return nil, storeErr(sqliteKind, "get_project", sessionID, fmt.Errorf("failed to decode project data: %w", err))
	}
	rec.RequestID = requestID.String
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &rec, nil
}

// PurgeBefore deletes sessions whose last update is older than cutoff.
func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, storeErr(sqliteKind, "purge", "sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(sqliteKind, "purge", "sessions", err)
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
