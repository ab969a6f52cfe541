// Package ingest implements the offline batch job that turns a directory of
// PDF files into indexed chunks: load, strip to minimal fields, split into
// overlapping windows, embed and upsert. One-shot, no resumability.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"

	"medichat/internal/embedding"
	"medichat/internal/models"
	"medichat/internal/worker"
)

// embedBatchSize bounds how many chunks one worker job embeds per request.
const embedBatchSize = 16

// Upserter is the slice of the index store the pipeline writes through.
type Upserter interface {
	Upsert(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error
}

// ChunkWriter embeds a batch of chunks and writes them to the index. It is
// the executor behind the ingestion worker pool.
type ChunkWriter struct {
	embedder embedding.Provider
	store    Upserter
}

func NewChunkWriter(embedder embedding.Provider, store Upserter) *ChunkWriter {
	return &ChunkWriter{embedder: embedder, store: store}
}

func (w *ChunkWriter) Process(ctx context.Context, batch worker.Batch) error {
	texts := make([]string, len(batch.Chunks))
	for i, c := range batch.Chunks {
		texts[i] = c.Content
	}
	vecs, err := w.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch from %s: %w", batch.Source, err)
	}
	if err := w.store.Upsert(ctx, batch.Chunks, vecs); err != nil {
		return fmt.Errorf("upsert batch from %s: %w", batch.Source, err)
	}
	return nil
}

// Pipeline drives one ingestion run over a fixed data directory.
type Pipeline struct {
	loader       *file.FileLoader
	dispatcher   *worker.Dispatcher
	dataDir      string
	chunkSize    int
	chunkOverlap int
}

func NewPipeline(ctx context.Context, dispatcher *worker.Dispatcher, dataDir string, chunkSize, chunkOverlap int) (*Pipeline, error) {
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{})
	if err != nil {
		return nil, fmt.Errorf("init pdf parser: %w", err)
	}
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers:        map[string]parser.Parser{".pdf": pdfParser},
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	return &Pipeline{
		loader:       loader,
		dispatcher:   dispatcher,
		dataDir:      dataDir,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Run loads every PDF under the data dir, chunks it and fans the batches out
// to the worker pool, then waits for all of them. The first failure is
// returned after every in-flight batch has settled.
func (p *Pipeline) Run(ctx context.Context) error {
	paths, err := filepath.Glob(filepath.Join(p.dataDir, "*.pdf"))
	if err != nil {
		return fmt.Errorf("scan data dir: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no pdf files found under %s", p.dataDir)
	}
	log.Printf("ingesting %d pdf files from %s", len(paths), p.dataDir)

	var batches []worker.Batch
	totalChunks := 0
	for _, path := range paths {
		chunks, err := p.chunkFile(ctx, path)
		if err != nil {
			return err
		}
		totalChunks += len(chunks)
		for _, batch := range batchChunks(path, chunks, embedBatchSize) {
			batches = append(batches, batch)
		}
	}
	log.Printf("split into %d chunks (%d batches)", totalChunks, len(batches))

	results := make(chan error, len(batches))
	for _, batch := range batches {
		p.dispatcher.JobQueue <- worker.Job{
			Type:    worker.Embed,
			Context: ctx,
			Batch:   batch,
			Result:  results,
		}
	}

	var firstErr error
	for range batches {
		if err := <-results; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	log.Printf("ingestion completed: %d chunks upserted", totalChunks)
	return nil
}

// chunkFile loads one document, keeps only text and source, and splits it.
func (p *Pipeline) chunkFile(ctx context.Context, path string) ([]models.Chunk, error) {
	docs, err := p.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	var chunks []models.Chunk
	for _, doc := range docs {
		if doc == nil || doc.Content == "" {
			continue
		}
		for _, piece := range SplitText(doc.Content, p.chunkSize, p.chunkOverlap) {
			chunks = append(chunks, models.Chunk{
				ID:      chunkID(piece),
				Content: piece,
				Source:  path,
			})
		}
	}
	log.Printf("loaded %s: %d chunks", path, len(chunks))
	return chunks, nil
}

func batchChunks(source string, chunks []models.Chunk, size int) []worker.Batch {
	var batches []worker.Batch
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, worker.Batch{Source: source, Chunks: chunks[start:end]})
	}
	return batches
}

// chunkID keys chunks by content so re-ingestion upserts in place.
func chunkID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
