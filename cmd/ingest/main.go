package main

import (
	"context"
	"log"
	"os"
	"time"

	"medichat/internal/config"
	"medichat/internal/embedding"
	"medichat/internal/index"
	"medichat/internal/ingest"
	"medichat/internal/storage"
	"medichat/internal/worker"
)

// Index the PDF corpus under the configured data directory. Run this once
// before starting the chat server and again whenever documents change.
func main() {
	cfgPath := os.Getenv("MEDICHAT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	pool, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer pool.Close()
	if err := storage.Migrate(ctx, pool, cfg); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	geminiProv, err := cfg.Provider("gemini")
	if err != nil {
		log.Fatalf("gemini credentials: %v", err)
	}
	embedder, err := embedding.NewGemini(ctx, geminiProv.APIKey, cfg.Retrieval.EmbeddingModel)
	if err != nil {
		log.Fatalf("init embedder: %v", err)
	}

	store, err := index.NewStore(pool, cfg.Retrieval.Metric)
	if err != nil {
		log.Fatalf("init vector store: %v", err)
	}

	workerCfg := worker.DispatcherConfig{
		MinWorkers:        cfg.BasicConfig.MinWorkers,
		MaxWorkers:        cfg.BasicConfig.MaxWorkers,
		QueueSize:         cfg.BasicConfig.QueueSize,
		WorkerIdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	}
	dispatcher := worker.NewDispatcher(workerCfg, ingest.NewChunkWriter(embedder, store))

	pipeline, err := ingest.NewPipeline(ctx, dispatcher, cfg.BasicConfig.DataDir,
		cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	if err != nil {
		log.Fatalf("init pipeline: %v", err)
	}

	if err := pipeline.Run(ctx); err != nil {
		log.Fatalf("ingest: %v", err)
	}

	total, err := store.Count(ctx)
	if err != nil {
		log.Fatalf("count documents: %v", err)
	}
	log.Printf("index ready: %d chunks stored", total)
}
