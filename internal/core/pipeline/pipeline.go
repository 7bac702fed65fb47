// Package pipeline wires normalize, extract, classify, match and route into
// one pure function over a document.
package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/estate-archive/internal/core/classify"
	"github.com/joseph-ayodele/estate-archive/internal/core/extract"
	"github.com/joseph-ayodele/estate-archive/internal/core/match"
	"github.com/joseph-ayodele/estate-archive/internal/core/normalize"
	"github.com/joseph-ayodele/estate-archive/internal/core/route"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/registry"
	"github.com/joseph-ayodele/estate-archive/internal/rules"
)

// Pipeline is safe for concurrent use: every stage is read-only after construction.
type Pipeline struct {
	logger     *slog.Logger
	rules      *rules.RuleSet
	registry   *registry.Registry
	extractor  *extract.Extractor
	classifier *classify.Classifier
	matcher    *match.Matcher
	router     *route.Router
}

func New(rs *rules.RuleSet, reg *registry.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:     logger,
		rules:      rs,
		registry:   reg,
		extractor:  extract.NewExtractor(rs.Extract, logger),
		classifier: classify.NewClassifier(rs.Classify, logger),
		matcher:    match.NewMatcher(rs.Match, logger),
		router:     route.NewRouter(rs.Route, logger),
	}
}

func (p *Pipeline) Rules() *rules.RuleSet { return p.rules }

func (p *Pipeline) Registry() *registry.Registry { return p.registry }

// Process never fails. Empty or garbled text yields an Unknown, Unmatched
// result routed to review.
func (p *Pipeline) Process(doc entity.Document) (entity.ProcessingResult, *entity.ReviewQueueEntry) {
	text := normalize.Normalize(doc.RawText)
	fields := p.extractor.Extract(text)
	cls := p.classifier.Classify(text, fields)
	m := p.matcher.Match(fields, cls.Type, p.registry)

	p.logger.Debug("pipeline.process",
		"document_id", doc.ID,
		"text_len", len(text),
		"candidates", len(fields),
		"document_type", cls.Type,
		"classification_confidence", cls.Confidence,
		"match_status", m.Status,
		"attempts", m.Attempts,
	)
	return p.router.Route(doc.ID, cls, fields, m)
}

// Candidates ranks the n registry records closest to a processed result.
func (p *Pipeline) Candidates(res entity.ProcessingResult, n int) []entity.MatchCandidate {
	return p.matcher.Rank(res.ExtractedFields, res.DocumentType, p.registry, n)
}
