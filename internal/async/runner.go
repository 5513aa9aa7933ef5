package async

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oladayo-ade/solarbill/internal/pipeline"
)

// Runner executes a set of documents as independent pipeline instances over a
// bounded worker pool. Results complete in any order; Stream emits each one
// as soon as its document reaches a terminal state, RunBatch collects them.
type Runner struct {
	proc    *pipeline.Processor
	logger  *slog.Logger
	workers int
}

func NewRunner(proc *pipeline.Processor, workers int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	return &Runner{proc: proc, logger: logger, workers: workers}
}

// Stream consumes documents and emits one Result per document that ran. On
// cancellation, documents not yet started are never issued; documents already
// in flight finish against the cancelled context and their results are
// discarded. The output channel closes once all workers drain.
func (r *Runner) Stream(ctx context.Context, docs <-chan pipeline.Document) <-chan *pipeline.Result {
	out := make(chan *pipeline.Result)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for doc := range docs {
				if ctx.Err() != nil {
					r.logger.Info("runner.skip_cancelled", "worker_id", workerID, "doc_id", doc.ID)
					continue
				}
				res, err := r.proc.Process(ctx, doc)
				if ctx.Err() != nil {
					// finished after cancellation: discard
					continue
				}
				if err != nil {
					r.logger.Warn("runner.document_failed", "worker_id", workerID, "doc_id", doc.ID, "error", err)
				}
				out <- res
			}
		}(i + 1)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// RunBatch runs every document and returns the results in completion order.
// One failed document never fails the batch; its Result carries the error.
func (r *Runner) RunBatch(ctx context.Context, docs []pipeline.Document) []*pipeline.Result {
	in := make(chan pipeline.Document)
	go func() {
		defer close(in)
		for _, d := range docs {
			select {
			case in <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make([]*pipeline.Result, 0, len(docs))
	for res := range r.Stream(ctx, in) {
		results = append(results, res)
	}
	return results
}
