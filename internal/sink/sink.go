// Package sink delivers processing results to storage and downstream
// consumers. Every sink here satisfies async.Sink.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/core/async"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/metrics"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
)

var (
	_ async.Sink = (*Multi)(nil)
	_ async.Sink = (*RepositorySink)(nil)
	_ async.Sink = (*KafkaSink)(nil)
	_ async.Sink = (*ArchiveSink)(nil)
)

// Named sinks report their metric label.
type Named interface {
	async.Sink
	Name() string
}

// Multi writes to every sink in order. One failing sink does not stop the
// others; their errors are joined.
type Multi struct {
	sinks []Named
}

func NewMulti(sinks ...Named) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Write(ctx context.Context, res entity.ProcessingResult, entry *entity.ReviewQueueEntry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, res, entry); err != nil {
			metrics.RecordSinkWrite(s.Name(), metrics.StatusFailed)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		metrics.RecordSinkWrite(s.Name(), metrics.StatusSucceeded)
	}
	return errors.Join(errs...)
}

// Len is the number of fanned-out sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// RepositorySink archives results in doc_results and review entries in
// doc_review_queue.
type RepositorySink struct {
	results repository.ResultRepository
	reviews repository.ReviewRepository
	logger  *slog.Logger
}

func NewRepositorySink(results repository.ResultRepository, reviews repository.ReviewRepository, logger *slog.Logger) *RepositorySink {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositorySink{results: results, reviews: reviews, logger: logger}
}

func (s *RepositorySink) Name() string { return "repository" }

func (s *RepositorySink) Write(ctx context.Context, res entity.ProcessingResult, entry *entity.ReviewQueueEntry) error {
	batchID := common.BatchIDFromContext(ctx)
	created, err := s.results.SaveResult(ctx, res, batchID, common.SourcePathFromContext(ctx))
	if err != nil {
		return err
	}
	if !created {
		s.logger.Info("sink.repository.duplicate", "document_id", res.DocumentID, "batch_id", batchID)
		return nil
	}
	if entry == nil {
		return nil
	}
	if _, err := s.reviews.Enqueue(ctx, *entry, batchID); err != nil {
		return err
	}
	return nil
}
