package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

// Job is one document to process. Either Document carries the text already,
// or Path names a file the runner's Loader turns into a document.
type Job struct {
	Document    entity.Document
	Path        string
	SubmittedAt time.Time
}

// ID is the document identifier reported for the job.
func (j Job) ID() string {
	if j.Document.ID != "" {
		return j.Document.ID
	}
	return j.Path
}

// Processor is the pure per-document pipeline.
type Processor interface {
	Process(doc entity.Document) (entity.ProcessingResult, *entity.ReviewQueueEntry)
}

// Loader produces the document for a path job, typically by running OCR.
type Loader interface {
	Load(ctx context.Context, job Job) (entity.Document, error)
}

// Sink receives every result. entry is nil for accepted documents.
type Sink interface {
	Write(ctx context.Context, res entity.ProcessingResult, entry *entity.ReviewQueueEntry) error
}

// Outcome is reported for every job, in completion order.
type Outcome struct {
	DocumentID string
	Path       string
	Result     *entity.ProcessingResult
	Review     *entity.ReviewQueueEntry
	// Err is a load failure or a contained panic. Result is nil when set.
	Err     error
	SinkErr error
	Elapsed time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) Stats
}
