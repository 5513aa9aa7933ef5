package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/oladayo-ade/solarbill/internal/pipeline"
)

// ProcessFunc runs one job to a terminal pipeline state. The daemon binds
// this to load-document → process → persist.
type ProcessFunc func(ctx context.Context, job Job) (*pipeline.Result, error)

// ProcessorQueue multiplexes jobs over a bounded worker pool. One document is
// one independent pipeline run; workers share no mutable state.
type ProcessorQueue struct {
	process ProcessFunc
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(process ProcessFunc, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	q := &ProcessorQueue{
		process: process,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res, err := q.process(ctx, job)
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "doc_id", job.DocID, "error", err)
					} else {
						q.logger.Info("processed document", "worker_id", workerID,
							"doc_id", job.DocID, "confidence", res.Confidence, "needs_review", res.NeedsReview)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "doc_id", job.DocID)
		return nil
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.ch <- job:
		q.logger.Info("queued document", "doc_id", job.DocID, "source", job.SourcePath)
		return nil
	default:
	}

	// Block outside the lock so a full queue never wedges Shutdown.
	q.logger.Warn("queue full, applying backpressure", "doc_id", job.DocID)
	select {
	case q.ch <- job:
	case <-q.quit:
		q.logger.Warn("dropping job: queue shut down under backpressure", "doc_id", job.DocID)
	}
	return nil
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	// Senders blocked on a full queue exit via quit; only then is the
	// channel safe to close.
	q.senders.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
