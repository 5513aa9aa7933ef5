package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is the smallest useful unit for the daemon's spool queue.
type Job struct {
	DocID       uuid.UUID
	SourcePath  string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
