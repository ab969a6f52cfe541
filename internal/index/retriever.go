package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"medichat/internal/embedding"
	"medichat/internal/models"
	"medichat/internal/redis"
)

const embedCacheTTL = 15 * time.Minute

// Searcher is the slice of Store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, vec []float32, k int) ([]models.Passage, error)
}

// Retriever embeds a query and runs top-K similarity search. Query
// embeddings are optionally cached in redis so repeated questions skip the
// embedding call; the cache is best-effort and failures only log.
type Retriever struct {
	embedder embedding.Provider
	store    Searcher
	cache    *redis.Client
	k        int
}

func NewRetriever(embedder embedding.Provider, store Searcher, cache *redis.Client, k int) *Retriever {
	return &Retriever{embedder: embedder, store: store, cache: cache, k: k}
}

// Retrieve returns the top-K passages for the query, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	vec, err := r.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}
	passages, err := r.store.Search(ctx, vec, r.k)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	return passages, nil
}

func (r *Retriever) queryVector(ctx context.Context, query string) ([]float32, error) {
	key := embedCacheKey(query)
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, key); err == nil {
			var vec []float32
			if err := json.Unmarshal([]byte(raw), &vec); err == nil && len(vec) > 0 {
				return vec, nil
			}
			log.Printf("discarding malformed cached embedding for %s", key)
		} else if err != redis.ErrCacheMiss {
			log.Printf("embedding cache read failed: %v", err)
		}
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if r.cache != nil {
		if data, err := json.Marshal(vec); err == nil {
			if err := r.cache.Set(ctx, key, data, embedCacheTTL); err != nil {
				log.Printf("embedding cache write failed: %v", err)
			}
		}
	}
	return vec, nil
}

func embedCacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "embed:query:" + hex.EncodeToString(sum[:])
}
