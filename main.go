package main

import (
	"context"
	"log"
	"os"
	"time"

	"medichat/internal/api"
	"medichat/internal/config"
	"medichat/internal/embedding"
	"medichat/internal/history"
	"medichat/internal/index"
	"medichat/internal/redis"
	"medichat/internal/service/rag"
	"medichat/internal/storage"

	"github.com/gin-gonic/gin"
)

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

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = redis.NewClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("redis not configured, embedding cache disabled")
	}

	store, err := index.NewStore(pool, cfg.Retrieval.Metric)
	if err != nil {
		log.Fatalf("init vector store: %v", err)
	}
	retriever := index.NewRetriever(embedder, store, rdb, cfg.Retrieval.K)

	ragService, err := rag.NewService(ctx, cfg, retriever)
	if err != nil {
		log.Fatalf("init rag service: %v", err)
	}

	historyStore := history.NewStore()
	typeDelay := time.Duration(cfg.Generation.TypingDelayMS) * time.Millisecond
	handlers := api.NewHandler(ragService, historyStore, cfg.Generation.MaxHistoryTurns, typeDelay)

	router := gin.Default()
	router.LoadHTMLGlob("templates/*")
	handlers.RegisterRoutes(router)

	if err := router.Run(cfg.BasicConfig.ServerAddress); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
