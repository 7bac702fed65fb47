// Package classify assigns a document type from weighted keyword, pattern
// and extracted-field signals.
package classify

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

// Signal is one weighted piece of evidence. Exactly one of Keyword, Re or
// Field is set.
type Signal struct {
	Keyword string
	Re      *regexp.Regexp
	Field   constants.FieldName
	Weight  float64
}

// TypeSignals is the evidence set for one document type.
type TypeSignals struct {
	Type    constants.DocumentType
	Signals []Signal
}

type Config struct {
	// MinScore is the lowest normalized score accepted as a classification.
	MinScore float64
	// TieMargin makes the result Unknown when the top two scores are closer than this.
	TieMargin float64
	Types     []TypeSignals
}

type Classifier struct {
	cfg    Config
	logger *slog.Logger
}

func NewClassifier(cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	types := append([]TypeSignals(nil), cfg.Types...)
	sort.SliceStable(types, func(i, j int) bool {
		return constants.PriorityRank(types[i].Type) < constants.PriorityRank(types[j].Type)
	})
	cfg.Types = types
	return &Classifier{cfg: cfg, logger: logger}
}

type ranked struct {
	t     constants.DocumentType
	score float64
}

// Classify scores every configured type and picks the best one. Scores are the
// matched weight divided by the total weight of the type. Unknown is returned,
// with the top score as confidence, when the top score is under MinScore or
// the runner-up is within TieMargin.
func (c *Classifier) Classify(text string, fields []entity.ExtractedField) entity.Classification {
	present := map[constants.FieldName]bool{}
	for _, f := range fields {
		present[f.Name] = true
	}

	scores := make(map[constants.DocumentType]float64, len(c.cfg.Types))
	ranking := make([]ranked, 0, len(c.cfg.Types))
	for _, ts := range c.cfg.Types {
		s := score(ts.Signals, text, present)
		scores[ts.Type] = s
		ranking = append(ranking, ranked{t: ts.Type, score: s})
	}
	// stable sort keeps priority order among equal scores
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].score > ranking[j].score })

	out := entity.Classification{Type: constants.Unknown, Scores: scores}
	if len(ranking) == 0 {
		return out
	}
	top := ranking[0]
	out.Confidence = top.score

	switch {
	case top.score <= 0 || top.score < c.cfg.MinScore:
		c.logger.Debug("classify.below_min", "top_type", top.t, "top_score", top.score)
	case len(ranking) > 1 && c.cfg.TieMargin > 0 && top.score-ranking[1].score < c.cfg.TieMargin:
		c.logger.Debug("classify.tie", "top_type", top.t, "second_type", ranking[1].t, "top_score", top.score, "second_score", ranking[1].score)
	default:
		out.Type = top.t
	}
	return out
}

func score(signals []Signal, text string, present map[constants.FieldName]bool) float64 {
	var total, hit float64
	for _, s := range signals {
		total += s.Weight
		if matches(s, text, present) {
			hit += s.Weight
		}
	}
	if total <= 0 {
		return 0
	}
	return hit / total
}

func matches(s Signal, text string, present map[constants.FieldName]bool) bool {
	switch {
	case s.Keyword != "":
		return strings.Contains(text, s.Keyword)
	case s.Re != nil:
		return s.Re.MatchString(text)
	case s.Field != "":
		return present[s.Field]
	}
	return false
}
