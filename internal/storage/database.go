package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"medichat/internal/config"
)

// Open connects a pgx pool to the configured PostgreSQL instance and
// registers the pgvector types on every connection.
func Open(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the vector extension, the documents table and the
// similarity index. The embedding column width is fixed by the configured
// embedding model; changing models requires re-ingesting from scratch.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error {
	ops := map[string]string{
		"cosine": "vector_cosine_ops",
		"l2":     "vector_l2_ops",
		"ip":     "vector_ip_ops",
	}
	opclass, ok := ops[cfg.Retrieval.Metric]
	if !ok {
		return fmt.Errorf("unsupported metric for index: %s", cfg.Retrieval.Metric)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			source     TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, cfg.Retrieval.EmbeddingDim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_documents_embedding
			ON documents USING hnsw (embedding %s)`, opclass),
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
