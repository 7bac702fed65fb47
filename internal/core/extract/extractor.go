// Package extract applies pattern rules to normalized text and produces
// ranked candidate values per field.
package extract

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/core/normalize"
	"github.com/joseph-ayodele/estate-archive/internal/core/validate"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

// Pattern is one compiled matcher of a rule. Group selects the capture
// group holding the value; 0 means the whole match.
type Pattern struct {
	Re    *regexp.Regexp
	Group int
}

// Rule is a compiled field rule.
type Rule struct {
	Name       string
	Field      constants.FieldName
	Patterns   []Pattern
	Confidence float64
	Validator  validate.Func
	Transforms []validate.Transform
}

// valueCutset is trimmed from both ends of every captured value.
const valueCutset = " ,.;:，。；：、"

type Extractor struct {
	rules  []Rule
	logger *slog.Logger
}

func NewExtractor(rules []Rule, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{rules: rules, logger: logger}
}

type candidate struct {
	field entity.ExtractedField
	order int
}

// Extract runs every rule over text. The result is grouped by field (in the
// order fields first appear among the rules) and each group is sorted by
// descending confidence. Values are deduplicated per field on their
// case- and whitespace-insensitive key, keeping the highest confidence.
func (e *Extractor) Extract(text string) []entity.ExtractedField {
	out := []entity.ExtractedField{}
	if text == "" {
		return out
	}

	var fieldOrder []constants.FieldName
	pools := map[constants.FieldName]map[string]*candidate{}
	seq := 0

	for _, rule := range e.rules {
		pool, ok := pools[rule.Field]
		if !ok {
			pool = map[string]*candidate{}
			pools[rule.Field] = pool
			fieldOrder = append(fieldOrder, rule.Field)
		}
		for _, p := range rule.Patterns {
			for _, loc := range p.Re.FindAllStringSubmatchIndex(text, -1) {
				start, end := loc[2*p.Group], loc[2*p.Group+1]
				if start < 0 {
					continue
				}
				value, vs, ve := trimValue(text, start, end)
				if value == "" {
					continue
				}
				for _, tr := range rule.Transforms {
					value = tr(value)
				}
				conf := clamp(rule.Confidence)
				if rule.Validator != nil && !rule.Validator(value) {
					conf /= 2
				}

				key := dedupKey(value)
				if prev, ok := pool[key]; ok {
					if conf > prev.field.Confidence {
						prev.field.Value = value
						prev.field.Confidence = conf
						prev.field.SourceSpan = &entity.Span{Start: vs, End: ve}
					}
					continue
				}
				pool[key] = &candidate{
					field: entity.ExtractedField{
						Name:       rule.Field,
						Value:      value,
						Confidence: conf,
						SourceSpan: &entity.Span{Start: vs, End: ve},
					},
					order: seq,
				}
				seq++
			}
		}
	}

	for _, name := range fieldOrder {
		group := make([]*candidate, 0, len(pools[name]))
		for _, c := range pools[name] {
			group = append(group, c)
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].field.Confidence != group[j].field.Confidence {
				return group[i].field.Confidence > group[j].field.Confidence
			}
			return group[i].order < group[j].order
		})
		for _, c := range group {
			out = append(out, c.field)
		}
	}

	e.logger.Debug("extract.done", "candidates", len(out), "fields", len(fieldOrder))
	return out
}

// trimValue strips separator punctuation around text[start:end] and returns
// the value with its adjusted offsets.
func trimValue(text string, start, end int) (string, int, int) {
	raw := text[start:end]
	left := strings.TrimLeft(raw, valueCutset)
	start += len(raw) - len(left)
	value := strings.TrimRight(left, valueCutset)
	return value, start, start + len(value)
}

func dedupKey(value string) string {
	return normalize.Key(value)
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
