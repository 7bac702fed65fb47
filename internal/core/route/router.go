// Package route decides whether a processed document is accepted or queued
// for manual review.
package route

import (
	"log/slog"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

type Config struct {
	MinClassificationConfidence float64
	MinFieldConfidence          float64
	// RequiredFields lists, per document type, the fields whose best
	// candidate must be present and confident enough.
	RequiredFields map[constants.DocumentType][]constants.FieldName
}

type Router struct {
	cfg    Config
	logger *slog.Logger
}

func NewRouter(cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, logger: logger}
}

// Route assembles the ProcessingResult and, when review is needed, the queue
// entry carrying it. The first applicable reason wins.
func (r *Router) Route(
	docID string,
	cls entity.Classification,
	fields []entity.ExtractedField,
	match entity.MatchResult,
) (entity.ProcessingResult, *entity.ReviewQueueEntry) {
	if fields == nil {
		fields = []entity.ExtractedField{}
	}
	res := entity.ProcessingResult{
		DocumentID:               docID,
		DocumentType:             cls.Type,
		ClassificationConfidence: cls.Confidence,
		ExtractedFields:          fields,
		MatchResult:              match,
	}

	reason, ok := r.reason(cls, fields, match)
	if !ok {
		r.logger.Debug("pipeline.route.accept", "document_id", docID, "document_type", cls.Type)
		return res, nil
	}

	res.NeedsManualReview = true
	res.ReviewReason = reason
	r.logger.Info("pipeline.route.review",
		"document_id", docID,
		"document_type", cls.Type,
		"reason", reason,
		"match_status", match.Status,
		"aggregate_score", match.AggregateScore,
	)
	return res, &entity.ReviewQueueEntry{DocumentID: docID, Reason: reason, Payload: res}
}

func (r *Router) reason(cls entity.Classification, fields []entity.ExtractedField, match entity.MatchResult) (constants.ReviewReason, bool) {
	if cls.Type == constants.Unknown || cls.Confidence < r.cfg.MinClassificationConfidence {
		return constants.ReasonClassificationUnknown, true
	}
	for _, name := range r.cfg.RequiredFields[cls.Type] {
		best, ok := entity.BestCandidate(fields, name)
		if !ok || best.Confidence < r.cfg.MinFieldConfidence {
			return constants.ReasonLowExtractionConfidence, true
		}
	}
	switch match.Status {
	case constants.MatchStatusAmbiguous:
		return constants.ReasonAmbiguous, true
	case constants.MatchStatusUnmatched:
		return constants.ReasonLowMatchConfidence, true
	}
	return "", false
}
