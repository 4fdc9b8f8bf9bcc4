package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-media/internal/db"
	"github.com/sells-group/brand-media/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool     db.Pool
	closeFn  func()
	pageSize int
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, pageSize: DefaultPageSize}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS kv_records (
	namespace    TEXT NOT NULL,
	key          TEXT COLLATE "C" NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
	data         BYTEA NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) PutRecord(ctx context.Context, namespace, key string, data []byte, contentType string) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if data == nil {
		data = []byte{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_records (namespace, key, content_type, data, updated_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (namespace, key) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		namespace, key, contentType, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put record %s/%s", namespace, key)
}

func (s *PostgresStore) GetRecord(ctx context.Context, namespace, key string) (*model.BlobRecord, error) {
	rec := &model.BlobRecord{Key: key}
	err := s.pool.QueryRow(ctx,
		`SELECT content_type, data FROM kv_records WHERE namespace = $1 AND key = $2`,
		namespace, key,
	).Scan(&rec.ContentType, &rec.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get record %s/%s", namespace, key)
	}
	return rec, nil
}

func (s *PostgresStore) ListKeys(ctx context.Context, namespace, exclusiveStartKey string) (*model.KeyPage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM kv_records WHERE namespace = $1 AND key > $2 ORDER BY key LIMIT $3`,
		namespace, exclusiveStartKey, s.pageSize+1,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list keys %s", namespace)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "postgres: scan key")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list keys iterate")
	}
	return pageOf(keys, s.pageSize), nil
}
