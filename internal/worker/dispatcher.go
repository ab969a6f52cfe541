package worker

import (
	"container/list"
	"sync"
	"time"
)

type sourceQueue struct {
	jobs     []Job
	enqueued bool
}

type DispatcherConfig struct {
	MinWorkers        int
	MaxWorkers        int
	QueueSize         int
	WorkerIdleTimeout time.Duration
}

// Dispatcher fans jobs out to the worker pool, round-robining across source
// documents so one huge PDF cannot starve the others.
type Dispatcher struct {
	pool     *jobChannelPool
	JobQueue chan Job // interface for outer jobs to get in the dispatcher

	mu        sync.Mutex
	queues    map[string]*sourceQueue // pending jobs keyed by source
	ready     *list.List              // round-robin queue of source keys
	positions map[string]*list.Element
}

func NewDispatcher(cfg DispatcherConfig, executor Executor) *Dispatcher {
	pool := newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.WorkerIdleTimeout, executor)
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &Dispatcher{
		pool:      pool,
		JobQueue:  make(chan Job, queueSize),
		queues:    make(map[string]*sourceQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
	}

	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

func (d *Dispatcher) run() {
	for {
		if !d.dispatchOne() {
			job := <-d.JobQueue // nothing pending, wait for work
			d.enqueueJob(job)
			continue
		}
		select {
		case job := <-d.JobQueue:
			d.enqueueJob(job)
		default:
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	source := job.Batch.Source

	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[source]
	if q == nil {
		q = &sourceQueue{}
		d.queues[source] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	d.positions[source] = d.ready.PushBack(source)
}

// dispatchOne hands the front source's next job to a worker.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		d.mu.Unlock()
		return false
	}
	source := elem.Value.(string)
	q := d.queues[source]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		q.enqueued = false
		d.ready.Remove(elem)
		delete(d.positions, source)
		delete(d.queues, source)
	} else {
		d.ready.MoveToBack(elem)
	}
	d.mu.Unlock()

	workerChan := d.pool.acquire()
	debugLog("[dispatcher] assign %s batch of %d chunks from %s", job.Type, len(job.Batch.Chunks), source)
	workerChan <- job
	return true
}
