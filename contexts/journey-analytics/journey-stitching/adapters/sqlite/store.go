// Package sqlite provides a single-file journey document store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"journeystitch/contexts/journey-analytics/journey-stitching/adapters/sqlite/migrations"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
	"journeystitch/internal/platform/storage/sqlitemigrate"

	_ "modernc.org/sqlite"
)

// multiGetChunk stays well below SQLite's bound-parameter limit.
const multiGetChunk = 500

// Store persists documents in SQLite. The pool is capped at one connection,
// so every transaction is serialized and Update is atomic per document.
type Store struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

// Open opens path (or ":memory:") and applies embedded migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{sqlDB: sqlDB, logger: logger}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, collection string, id string) ([]byte, bool, error) {
	var body []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT body FROM journey_documents WHERE collection = ? AND doc_id = ?`,
		collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return body, true, nil
}

func (s *Store) MultiGet(ctx context.Context, collection string, ids []string) (map[string][]byte, error) {
	docs := make(map[string][]byte, len(ids))
	for start := 0; start < len(ids); start += multiGetChunk {
		end := min(start+multiGetChunk, len(ids))
		chunk := ids[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, collection)
		for _, id := range chunk {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		rows, err := s.sqlDB.QueryContext(ctx,
			`SELECT doc_id, body FROM journey_documents WHERE collection = ? AND doc_id IN (`+placeholders+`)`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("multi get %s: %w", collection, err)
		}
		for rows.Next() {
			var id string
			var body []byte
			if err := rows.Scan(&id, &body); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("scan %s: %w", collection, err)
			}
			docs[id] = body
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *Store) Put(ctx context.Context, collection string, id string, doc []byte) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO journey_documents (collection, doc_id, body, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, doc_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, id, doc, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection string, id string, fn ports.UpdateFunc) ([]byte, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update %s/%s: %w", collection, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var current []byte
	found := true
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM journey_documents WHERE collection = ? AND doc_id = ?`,
		collection, id,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}

	next, err := fn(current, found)
	if errors.Is(err, ports.ErrSkipWrite) {
		return current, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO journey_documents (collection, doc_id, body, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, doc_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, id, next, time.Now().UTC().UnixMilli(),
	); err != nil {
		return nil, fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s/%s: %w", collection, id, err)
	}
	s.logger.Debug("sqlite document updated",
		"event", "journey_sqlite_document_updated",
		"module", "journey-analytics/journey-stitching",
		"layer", "adapter",
		"collection", collection,
		"doc_id", id,
	)
	return next, nil
}
