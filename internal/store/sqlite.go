package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/brand-media/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db       *sql.DB
	pageSize int
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, pageSize: DefaultPageSize}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS kv_records (
	namespace    TEXT NOT NULL,
	key          TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
	data         BLOB NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (namespace, key)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) PutRecord(ctx context.Context, namespace, key string, data []byte, contentType string) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_records (namespace, key, content_type, data, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET content_type = excluded.content_type, data = excluded.data, updated_at = excluded.updated_at`,
		namespace, key, contentType, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put record %s/%s", namespace, key)
}

func (s *SQLiteStore) GetRecord(ctx context.Context, namespace, key string) (*model.BlobRecord, error) {
	rec := &model.BlobRecord{Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, data FROM kv_records WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&rec.ContentType, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get record %s/%s", namespace, key)
	}
	return rec, nil
}

func (s *SQLiteStore) ListKeys(ctx context.Context, namespace, exclusiveStartKey string) (*model.KeyPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_records WHERE namespace = ? AND key > ? ORDER BY key LIMIT ?`,
		namespace, exclusiveStartKey, s.pageSize+1,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list keys %s", namespace)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan key")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list keys iterate")
	}
	return pageOf(keys, s.pageSize), nil
}
