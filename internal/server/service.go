// Package server exposes the pipeline over HTTP (gin) and gRPC.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/core/async"
	"github.com/joseph-ayodele/estate-archive/internal/core/pipeline"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/export"
	"github.com/joseph-ayodele/estate-archive/internal/ingest"
	"github.com/joseph-ayodele/estate-archive/internal/metrics"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
)

// textNamespace derives stable ids for documents submitted as text.
var textNamespace = uuid.MustParse("6f1c7c1e-9a4b-5d2e-8f00-3e5a1b7c9d20")

// ProcessRequest submits either text or a server-side file path.
type ProcessRequest struct {
	DocumentID string `json:"document_id" validate:"omitempty,max=128"`
	RawText    string `json:"raw_text" validate:"required_without=Path"`
	Path       string `json:"path" validate:"required_without=RawText"`
}

// ProcessResponse carries the pipeline output. SinkError is set when the
// result was computed but could not be delivered.
type ProcessResponse struct {
	Result    entity.ProcessingResult  `json:"result"`
	Review    *entity.ReviewQueueEntry `json:"review,omitempty"`
	SinkError string                   `json:"sink_error,omitempty"`
}

// Deps are the collaborators of Service. Sink, Loader, Ingestor and the
// repositories are optional; operations needing a missing one fail with
// ErrInvalidInput.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Sink     async.Sink
	Loader   async.Loader
	Ingestor ingest.Ingestor
	Results  repository.ResultRepository
	Reviews  repository.ReviewRepository
	Exporter *export.Service
}

// Service holds the operations shared by the HTTP and gRPC transports.
type Service struct {
	deps   Deps
	logger *slog.Logger
}

func NewService(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, logger: logger}
}

// Process runs one document through the pipeline and the sink.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	doc, err := s.document(ctx, req)
	if err != nil {
		return nil, err
	}
	ctx = common.WithDocumentID(ctx, doc.ID)
	ctx = common.WithSourcePath(ctx, doc.SourcePath)

	start := time.Now()
	res, entry := s.deps.Pipeline.Process(doc)
	metrics.RecordStage("pipeline", time.Since(start).Seconds())
	outcome := metrics.OutcomeAccepted
	if res.NeedsManualReview {
		outcome = metrics.OutcomeReview
	}
	metrics.RecordDocument(string(res.DocumentType), outcome, string(res.MatchResult.Status), string(res.ReviewReason), res.MatchResult.Attempts)

	out := &ProcessResponse{Result: res, Review: entry}
	if s.deps.Sink != nil {
		if err := s.deps.Sink.Write(ctx, res, entry); err != nil {
			s.logger.Error("server.sink.failed", "document_id", doc.ID, "request_id", common.RequestIDFromContext(ctx), "error", err)
			out.SinkError = err.Error()
		}
	}
	s.logger.Info("server.process.done",
		"document_id", doc.ID,
		"request_id", common.RequestIDFromContext(ctx),
		"document_type", res.DocumentType,
		"match_status", res.MatchResult.Status,
		"needs_review", res.NeedsManualReview,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *Service) document(ctx context.Context, req ProcessRequest) (entity.Document, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		id := req.DocumentID
		if id == "" {
			id = uuid.NewSHA1(textNamespace, []byte(req.RawText)).String()
		}
		return entity.Document{ID: id, RawText: req.RawText}, nil
	}

	if s.deps.Loader == nil || s.deps.Ingestor == nil {
		return entity.Document{}, common.WrapError(common.ErrInvalidInput, "path submissions are disabled")
	}
	r, err := s.deps.Ingestor.IngestPath(ctx, path)
	if err != nil {
		return entity.Document{}, common.WrapError(common.ErrInvalidInput, fmt.Sprintf("ingest %s: %v", path, err))
	}
	id := req.DocumentID
	if id == "" {
		id = r.DocumentID
	}
	job := async.Job{Document: entity.Document{ID: id, SourcePath: r.SourcePath}, Path: r.SourcePath}
	doc, err := s.deps.Loader.Load(ctx, job)
	if err != nil {
		return entity.Document{}, fmt.Errorf("load %s: %w", r.SourcePath, err)
	}
	doc.ID = id
	return doc, nil
}

func (s *Service) GetResult(ctx context.Context, documentID string) (*entity.StoredResult, error) {
	if s.deps.Results == nil {
		return nil, common.WrapError(common.ErrInvalidInput, "result storage is disabled")
	}
	if strings.TrimSpace(documentID) == "" {
		return nil, common.WrapError(common.ErrInvalidInput, "document_id is required")
	}
	return s.deps.Results.GetResult(ctx, documentID)
}

func (s *Service) ListResults(ctx context.Context, filter repository.ListFilter) ([]entity.StoredResult, error) {
	if s.deps.Results == nil {
		return nil, common.WrapError(common.ErrInvalidInput, "result storage is disabled")
	}
	return s.deps.Results.ListResults(ctx, filter)
}

func (s *Service) ListReviews(ctx context.Context, pendingOnly bool, filter repository.ListFilter) ([]entity.StoredReview, error) {
	if s.deps.Reviews == nil {
		return nil, common.WrapError(common.ErrInvalidInput, "review storage is disabled")
	}
	return s.deps.Reviews.ListReviews(ctx, pendingOnly, filter)
}

func (s *Service) ResolveReview(ctx context.Context, documentID, resolution string) error {
	if s.deps.Reviews == nil {
		return common.WrapError(common.ErrInvalidInput, "review storage is disabled")
	}
	if strings.TrimSpace(documentID) == "" || strings.TrimSpace(resolution) == "" {
		return common.WrapError(common.ErrInvalidInput, "document_id and resolution are required")
	}
	return s.deps.Reviews.Resolve(ctx, documentID, resolution)
}

// Candidates re-ranks the registry for a stored result.
func (s *Service) Candidates(ctx context.Context, documentID string, n int) ([]entity.MatchCandidate, error) {
	stored, err := s.GetResult(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = s.deps.Pipeline.Rules().Match.MaxCandidates
	}
	return s.deps.Pipeline.Candidates(stored.Result, n), nil
}

func (s *Service) ExportXLSX(ctx context.Context, batchID string) ([]byte, error) {
	if s.deps.Exporter == nil {
		return nil, common.WrapError(common.ErrInvalidInput, "export is disabled")
	}
	return s.deps.Exporter.ExportXLSX(ctx, repository.ListFilter{BatchID: batchID})
}
