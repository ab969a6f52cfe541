// Package index stores and searches document chunks in a pgvector-backed
// table. Similarity search is the only read path; everything else about
// ranking lives in the database.
package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"medichat/internal/models"
)

// distanceOps maps the configured metric to the pgvector operator.
var distanceOps = map[string]string{
	"cosine": "<=>",
	"l2":     "<->",
	"ip":     "<#>",
}

// Store reads and writes the documents table.
type Store struct {
	pool *pgxpool.Pool
	op   string
}

func NewStore(pool *pgxpool.Pool, metric string) (*Store, error) {
	op, ok := distanceOps[metric]
	if !ok {
		return nil, fmt.Errorf("unsupported metric: %s", metric)
	}
	return &Store{pool: pool, op: op}, nil
}

// Upsert writes chunks and their embeddings, keyed by content hash, so
// re-ingesting the same material overwrites instead of duplicating.
func (s *Store) Upsert(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(
			`INSERT INTO documents (id, content, source, embedding)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET
			   content = EXCLUDED.content,
			   source = EXCLUDED.source,
			   embedding = EXCLUDED.embedding`,
			chunk.ID, chunk.Content, chunk.Source, pgvector.NewVector(embeddings[i]),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert chunk: %w", err)
		}
	}
	return nil
}

// Search returns the k nearest chunks to the query vector, best first.
func (s *Store) Search(ctx context.Context, vec []float32, k int) ([]models.Passage, error) {
	query := fmt.Sprintf(
		`SELECT content, source, embedding %s $1 AS score
		 FROM documents
		 ORDER BY embedding %s $1
		 LIMIT $2`, s.op, s.op)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var passages []models.Passage
	for rows.Next() {
		var p models.Passage
		if err := rows.Scan(&p.Content, &p.Source, &p.Score); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return passages, nil
}

// Count reports how many chunks the index holds.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
