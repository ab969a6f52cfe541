// Package worker provides the elastic pool that parallelizes ingestion:
// chunk batches are dispatched fairly across source documents to a bounded
// set of workers that embed and upsert them.
package worker

import (
	"context"

	"medichat/internal/models"
)

type JobType string

const (
	Embed JobType = "embed"
	Stop  JobType = "stop"
)

// Batch is one unit of ingestion work: a group of chunks from one source.
type Batch struct {
	Source string
	Chunks []models.Chunk
}

// Executor performs the actual embed-and-store step for a batch.
type Executor interface {
	Process(ctx context.Context, batch Batch) error
}

type Job struct {
	Type    JobType
	Context context.Context
	Batch   Batch
	Result  chan<- error
}

type Worker struct {
	pool       *jobChannelPool
	executor   Executor
	jobChannel chan Job
}

func newWorker(pool *jobChannelPool, executor Executor) *Worker {
	return &Worker{
		pool:       pool,
		executor:   executor,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for job := range w.jobChannel {
			if job.Type == Stop {
				w.pool.retire(w.jobChannel)
				return
			}
			ctx := job.Context
			if ctx == nil {
				ctx = context.Background()
			}
			err := w.executor.Process(ctx, job.Batch)
			if job.Result != nil {
				job.Result <- err
			}
			w.pool.Release(w.jobChannel)
		}
	}()
}
