// Package match reconciles extracted fields against the property registry.
package match

import (
	"log/slog"
	"math"
	"sort"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/registry"
)

// scoreScale is the precision aggregates are rounded to, so that weighted
// sums like 0.5+0.25 compare equal to the configured thresholds.
const scoreScale = 1e12

// FieldSpec compares one registry column with one extracted field.
type FieldSpec struct {
	Column   string
	Source   constants.FieldName
	Method   constants.MatchMethod
	Weight   float64
	Required bool
}

type Config struct {
	MatchThreshold  float64
	MarginThreshold float64
	// RetryThreshold triggers retries with lower ranked candidates when the
	// best aggregate stays below it.
	RetryThreshold float64
	// MaxCandidates caps how many candidates per field are tried.
	MaxCandidates int
	FieldSets     map[constants.DocumentType][]FieldSpec
}

type Matcher struct {
	cfg    Config
	logger *slog.Logger
}

func NewMatcher(cfg Config, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 1
	}
	return &Matcher{cfg: cfg, logger: logger}
}

// FieldSet returns the comparison fields for t, falling back to the Unknown set.
func (m *Matcher) FieldSet(t constants.DocumentType) []FieldSpec {
	if specs, ok := m.cfg.FieldSets[t]; ok {
		return specs
	}
	return m.cfg.FieldSets[constants.Unknown]
}

type scored struct {
	idx    int
	agg    float64
	scores []float64
}

type attempt struct {
	values []*registry.Value
	first  *scored
	second *scored
}

func (a *attempt) top() float64 {
	if a.first == nil {
		return 0
	}
	return a.first.agg
}

// Match scores every record and decides Matched, Ambiguous or Unmatched. When
// the best aggregate is under RetryThreshold it retries with the next
// candidate of one field at a time and keeps the best attempt.
func (m *Matcher) Match(fields []entity.ExtractedField, docType constants.DocumentType, reg *registry.Registry) entity.MatchResult {
	specs := m.FieldSet(docType)
	if reg.Len() == 0 || len(specs) == 0 {
		return entity.MatchResult{Status: constants.MatchStatusUnmatched, Attempts: 0}
	}

	cands := make([][]entity.ExtractedField, len(specs))
	for i, s := range specs {
		c := entity.Candidates(fields, s.Source)
		if len(c) > m.cfg.MaxCandidates {
			c = c[:m.cfg.MaxCandidates]
		}
		cands[i] = c
	}

	best := m.run(specs, cands, make([]int, len(specs)), reg)
	attempts := 1

retry:
	for i := range specs {
		if best.top() >= m.cfg.RetryThreshold {
			break
		}
		for k := 1; k < len(cands[i]); k++ {
			choice := make([]int, len(specs))
			choice[i] = k
			a := m.run(specs, cands, choice, reg)
			attempts++
			m.logger.Debug("match.retry",
				"doc_type", docType,
				"column", specs[i].Column,
				"candidate", k,
				"best_aggregate", a.top(),
			)
			if a.top() > best.top() {
				best = a
			}
			if best.top() >= m.cfg.RetryThreshold {
				break retry
			}
		}
	}

	return m.decide(specs, best, attempts, reg)
}

// run scores every record with the candidates selected by choice and keeps
// the two best. Ties keep registry order.
func (m *Matcher) run(specs []FieldSpec, cands [][]entity.ExtractedField, choice []int, reg *registry.Registry) *attempt {
	a := &attempt{values: make([]*registry.Value, len(specs))}
	for i := range specs {
		if len(cands[i]) == 0 {
			continue
		}
		v := registry.Prepare(cands[i][choice[i]].Value)
		a.values[i] = &v
	}

	for idx := 0; idx < reg.Len(); idx++ {
		scores := make([]float64, len(specs))
		present := make([]bool, len(specs))
		for i, s := range specs {
			if a.values[i] == nil {
				continue
			}
			present[i] = true
			scores[i] = Similarity(s.Method, *a.values[i], reg.Value(idx, s.Column))
		}
		cur := &scored{idx: idx, agg: Aggregate(specs, scores, present), scores: scores}
		switch {
		case a.first == nil || cur.agg > a.first.agg:
			a.second = a.first
			a.first = cur
		case a.second == nil || cur.agg > a.second.agg:
			a.second = cur
		}
	}
	return a
}

// Aggregate is the weighted mean of field scores over present fields. A
// missing required field forces 0. Raising any single score never lowers the
// result.
func Aggregate(specs []FieldSpec, scores []float64, present []bool) float64 {
	var num, den float64
	for i, s := range specs {
		if !present[i] {
			if s.Required {
				return 0
			}
			continue
		}
		num += s.Weight * scores[i]
		den += s.Weight
	}
	if den <= 0 {
		return 0
	}
	return math.Round(num/den*scoreScale) / scoreScale
}

func (m *Matcher) decide(specs []FieldSpec, a *attempt, attempts int, reg *registry.Registry) entity.MatchResult {
	res := entity.MatchResult{Status: constants.MatchStatusUnmatched, Attempts: attempts}
	if a.first == nil {
		return res
	}
	res.AggregateScore = a.first.agg
	if a.second != nil {
		v := a.second.agg
		res.RunnerUpScore = &v
	}
	res.FieldScores = map[string]float64{}
	res.UsedValues = map[string]string{}
	for i, s := range specs {
		if a.values[i] == nil {
			continue
		}
		res.FieldScores[s.Column] = a.first.scores[i]
		res.UsedValues[s.Column] = a.values[i].Raw
	}

	margin := a.first.agg
	if a.second != nil {
		margin -= a.second.agg
	}
	switch {
	case a.first.agg < m.cfg.MatchThreshold:
		res.Status = constants.MatchStatusUnmatched
	case margin >= m.cfg.MarginThreshold:
		res.Status = constants.MatchStatusMatched
	default:
		res.Status = constants.MatchStatusAmbiguous
	}
	if res.Status != constants.MatchStatusUnmatched {
		rec := reg.Record(a.first.idx)
		res.Record = &rec
	}
	return res
}

// Rank returns the n best records for the top-ranked candidate of every
// field, highest aggregate first. Reviewers use it to see near misses.
func (m *Matcher) Rank(fields []entity.ExtractedField, docType constants.DocumentType, reg *registry.Registry, n int) []entity.MatchCandidate {
	specs := m.FieldSet(docType)
	if reg.Len() == 0 || len(specs) == 0 || n <= 0 {
		return nil
	}
	values := make([]*registry.Value, len(specs))
	for i, s := range specs {
		if f, ok := entity.BestCandidate(fields, s.Source); ok {
			v := registry.Prepare(f.Value)
			values[i] = &v
		}
	}

	out := make([]entity.MatchCandidate, 0, reg.Len())
	for idx := 0; idx < reg.Len(); idx++ {
		scores := make([]float64, len(specs))
		present := make([]bool, len(specs))
		fs := map[string]float64{}
		for i, s := range specs {
			if values[i] == nil {
				continue
			}
			present[i] = true
			scores[i] = Similarity(s.Method, *values[i], reg.Value(idx, s.Column))
			fs[s.Column] = scores[i]
		}
		rec := reg.Record(idx)
		out = append(out, entity.MatchCandidate{
			Record:         &rec,
			FieldScores:    fs,
			AggregateScore: Aggregate(specs, scores, present),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AggregateScore > out[j].AggregateScore })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
