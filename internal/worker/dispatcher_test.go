package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"medichat/internal/models"
)

type countingExecutor struct {
	mu        sync.Mutex
	processed map[string]int
	fail      bool
}

func newCountingExecutor() *countingExecutor {
	return &countingExecutor{processed: make(map[string]int)}
}

func (e *countingExecutor) Process(ctx context.Context, batch Batch) error {
	if e.fail {
		return errors.New("executor failure")
	}
	e.mu.Lock()
	e.processed[batch.Source] += len(batch.Chunks)
	e.mu.Unlock()
	return nil
}

func batchOf(source string, n int) Batch {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			ID:      fmt.Sprintf("%s-%d", source, i),
			Content: "chunk",
			Source:  source,
		}
	}
	return Batch{Source: source, Chunks: chunks}
}

func TestDispatcherProcessesAllBatches(t *testing.T) {
	exec := newCountingExecutor()
	d := NewDispatcher(DispatcherConfig{MinWorkers: 2, MaxWorkers: 4, QueueSize: 32}, exec)

	results := make(chan error, 12)
	for _, source := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		for i := 0; i < 4; i++ {
			d.JobQueue <- Job{
				Type:    Embed,
				Context: context.Background(),
				Batch:   batchOf(source, 5),
				Result:  results,
			}
		}
	}

	for i := 0; i < 12; i++ {
		select {
		case err := <-results:
			if err != nil {
				t.Fatalf("job %d failed: %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for job %d", i)
		}
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	for _, source := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if exec.processed[source] != 20 {
			t.Fatalf("source %s processed %d chunks, want 20", source, exec.processed[source])
		}
	}
}

func TestDispatcherReportsExecutorErrors(t *testing.T) {
	exec := newCountingExecutor()
	exec.fail = true
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 4}, exec)

	results := make(chan error, 1)
	d.JobQueue <- Job{Type: Embed, Batch: batchOf("x.pdf", 1), Result: results}

	select {
	case err := <-results:
		if err == nil {
			t.Fatalf("expected executor error")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for result")
	}
}

func TestPoolIdleRetirement(t *testing.T) {
	exec := newCountingExecutor()
	pool := newJobChannelPool(1, 3, 20*time.Millisecond, exec)
	for i := 0; i < 3; i++ {
		pool.spawnWorker()
	}

	// All workers idle; after the expiry only min should survive.
	pool.mu.Lock()
	channels := make([]chan Job, 0, len(pool.metadata))
	for ch := range pool.metadata {
		channels = append(channels, ch)
	}
	pool.mu.Unlock()
	for _, ch := range channels {
		pool.Release(ch)
	}

	deadline := time.After(2 * time.Second)
	for {
		pool.mu.Lock()
		running := pool.running
		pool.mu.Unlock()
		if running == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("running = %d, want 1 after idle purge", running)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
