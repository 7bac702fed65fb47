package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/metrics"
)

// ErrQueueClosed is returned by Enqueue after Shutdown started.
var ErrQueueClosed = errors.New("queue is shutting down")

// BatchRunner processes jobs on a bounded pool of workers. One job's
// failure, panic or sink error never affects another job.
type BatchRunner struct {
	proc      Processor
	loader    Loader
	sink      Sink
	onOutcome func(Outcome)
	logger    *slog.Logger
	workers   int
	timeout   time.Duration
	batchID   string

	ch    chan Job
	wg    sync.WaitGroup
	once  sync.Once
	stats *statsCollector

	mu     sync.Mutex
	closed bool
}

var _ Queue = (*BatchRunner)(nil)

type Option func(*BatchRunner)

func WithWorkers(n int) Option {
	return func(q *BatchRunner) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *BatchRunner) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *BatchRunner) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithLoader(l Loader) Option {
	return func(q *BatchRunner) { q.loader = l }
}
func WithSink(s Sink) Option {
	return func(q *BatchRunner) { q.sink = s }
}

// WithOutcomeHandler registers fn for every finished job. fn is called from
// worker goroutines and must be safe for concurrent use.
func WithOutcomeHandler(fn func(Outcome)) Option {
	return func(q *BatchRunner) { q.onOutcome = fn }
}
func WithBatchID(id string) Option {
	return func(q *BatchRunner) {
		if id != "" {
			q.batchID = id
		}
	}
}

func NewBatchRunner(proc Processor, logger *slog.Logger, opts ...Option) *BatchRunner {
	if logger == nil {
		logger = slog.Default()
	}
	q := &BatchRunner{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		batchID: uuid.NewString(),
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.logger = q.logger.With("batch_id", q.batchID)
	q.stats = newStatsCollector(q.batchID)
	q.start()
	return q
}

func (q *BatchRunner) BatchID() string { return q.batchID }

func (q *BatchRunner) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.handle(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *BatchRunner) handle(workerID int, job Job) {
	start := time.Now()
	ctx := common.WithDocumentID(common.WithBatchID(context.Background(), q.batchID), job.ID())
	ctx = common.WithSourcePath(ctx, job.Path)
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	metrics.QueueJobsInFlight.Inc()
	defer metrics.QueueJobsInFlight.Dec()

	out := Outcome{DocumentID: job.ID(), Path: job.Path}
	defer func() {
		if r := recover(); r != nil {
			out.Result, out.Review = nil, nil
			out.Err = fmt.Errorf("panic while processing: %v", r)
			q.logger.Error("batch.job.panic",
				"worker_id", workerID,
				"document_id", out.DocumentID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		out.Elapsed = time.Since(start)
		q.finish(workerID, out)
	}()

	doc, err := q.load(ctx, job)
	if err != nil {
		out.Err = err
		return
	}
	out.DocumentID = doc.ID

	pipelineStart := time.Now()
	res, entry := q.proc.Process(doc)
	metrics.RecordStage("pipeline", time.Since(pipelineStart).Seconds())
	out.Result, out.Review = &res, entry

	if q.sink != nil {
		sinkStart := time.Now()
		out.SinkErr = q.sink.Write(ctx, res, entry)
		metrics.RecordStage("sink", time.Since(sinkStart).Seconds())
	}
}

func (q *BatchRunner) load(ctx context.Context, job Job) (entity.Document, error) {
	if q.loader == nil || job.Path == "" {
		return job.Document, nil
	}
	loadStart := time.Now()
	d, err := q.loader.Load(ctx, job)
	metrics.RecordStage("load", time.Since(loadStart).Seconds())
	if err != nil {
		return d, fmt.Errorf("load %s: %w", job.Path, err)
	}
	if d.ID == "" {
		d.ID = job.ID()
	}
	return d, nil
}

func (q *BatchRunner) finish(workerID int, out Outcome) {
	q.stats.record(out)

	switch {
	case out.Err != nil:
		metrics.RecordQueueJob(metrics.StatusFailed)
		metrics.RecordDocument("", metrics.OutcomeFailed, "", "", 0)
		q.logger.Error("batch.job.failed", "worker_id", workerID, "document_id", out.DocumentID, "path", out.Path, "error", out.Err)
	default:
		res := out.Result
		outcome := metrics.OutcomeAccepted
		if res.NeedsManualReview {
			outcome = metrics.OutcomeReview
		}
		metrics.RecordQueueJob(metrics.StatusSucceeded)
		metrics.RecordDocument(string(res.DocumentType), outcome, string(res.MatchResult.Status), string(res.ReviewReason), res.MatchResult.Attempts)
		q.logger.Info("batch.job.done",
			"worker_id", workerID,
			"document_id", out.DocumentID,
			"document_type", res.DocumentType,
			"match_status", res.MatchResult.Status,
			"needs_review", res.NeedsManualReview,
			"duration_ms", out.Elapsed.Milliseconds(),
		)
	}
	if out.SinkErr != nil {
		q.logger.Error("batch.sink.failed", "worker_id", workerID, "document_id", out.DocumentID, "error", out.SinkErr)
	}

	if q.onOutcome != nil {
		q.onOutcome(out)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *BatchRunner) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.ID())
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Debug("queue full, applying backpressure", "document_id", job.ID())
		select {
		case q.ch <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.stats.submitted()
	return nil
}

// Shutdown stops intake, waits for queued jobs to drain (or ctx to end) and
// returns the batch statistics.
func (q *BatchRunner) Shutdown(ctx context.Context) Stats {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return q.stats.snapshot()
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
	q.stats.finish()
	return q.stats.snapshot()
}

// Stats returns the statistics collected so far.
func (q *BatchRunner) Stats() Stats { return q.stats.snapshot() }

// RunAll enqueues every job, waits for all of them and returns the statistics.
func (q *BatchRunner) RunAll(ctx context.Context, jobs []Job) (Stats, error) {
	var enqueueErr error
	for _, job := range jobs {
		if err := q.Enqueue(ctx, job); err != nil {
			enqueueErr = err
			break
		}
	}
	return q.Shutdown(ctx), enqueueErr
}
