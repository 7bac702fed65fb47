package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/core/classify"
	"github.com/joseph-ayodele/estate-archive/internal/core/extract"
	"github.com/joseph-ayodele/estate-archive/internal/core/match"
	"github.com/joseph-ayodele/estate-archive/internal/core/route"
	"github.com/joseph-ayodele/estate-archive/internal/core/validate"
)

// RuleSet is a compiled, read-only rule document.
type RuleSet struct {
	Extract  []extract.Rule
	Classify classify.Config
	Match    match.Config
	Route    route.Config

	Source string
	// Digest is the sha256 of the rule file. Equal digests mean equal behaviour.
	Digest string
}

func compile(f *File) (*RuleSet, error) {
	rs := &RuleSet{}
	labels := labelAlternation(f.Labels)

	for i, fr := range f.Fields {
		rule, err := compileFieldRule(fr, labels)
		if err != nil {
			return nil, fmt.Errorf("fields[%d] %q: %w", i, fr.Name, err)
		}
		rs.Extract = append(rs.Extract, rule)
	}

	cls, err := compileClassifier(f.Classifier)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	rs.Classify = cls

	m, err := compileMatching(f.Matching)
	if err != nil {
		return nil, fmt.Errorf("matching: %w", err)
	}
	rs.Match = m

	r, err := compileRouting(f.Routing)
	if err != nil {
		return nil, fmt.Errorf("routing: %w", err)
	}
	rs.Route = r

	return rs, nil
}

// labelsPlaceholder in a pattern expands to an alternation of every label.
const labelsPlaceholder = "{{labels}}"

// labelAlternation quotes labels into one non-capturing group, longest
// first. It returns "" when there are no labels.
func labelAlternation(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	sorted := append([]string(nil), labels...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, l := range sorted {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

func compileFieldRule(fr FieldRule, labels string) (extract.Rule, error) {
	field, err := parseField(fr.Field)
	if err != nil {
		return extract.Rule{}, err
	}
	rule := extract.Rule{Name: fr.Name, Field: field, Confidence: fr.Confidence}

	if fr.Validator != "" {
		fn, err := validate.Lookup(fr.Validator)
		if err != nil {
			return extract.Rule{}, err
		}
		rule.Validator = fn
	}
	for _, name := range fr.Transforms {
		tr, err := validate.LookupTransform(name)
		if err != nil {
			return extract.Rule{}, err
		}
		rule.Transforms = append(rule.Transforms, tr)
	}
	for j, p := range fr.Patterns {
		expr := p.Regex
		if strings.Contains(expr, labelsPlaceholder) {
			if labels == "" {
				return extract.Rule{}, fmt.Errorf("patterns[%d]: uses %s but no labels are defined", j, labelsPlaceholder)
			}
			expr = strings.ReplaceAll(expr, labelsPlaceholder, labels)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return extract.Rule{}, fmt.Errorf("patterns[%d]: %w", j, err)
		}
		if p.Group > re.NumSubexp() {
			return extract.Rule{}, fmt.Errorf("patterns[%d]: group %d but regex has %d groups", j, p.Group, re.NumSubexp())
		}
		rule.Patterns = append(rule.Patterns, extract.Pattern{Re: re, Group: p.Group})
	}
	return rule, nil
}

func compileClassifier(cr ClassifierRules) (classify.Config, error) {
	cfg := classify.Config{MinScore: cr.MinScore, TieMargin: cr.TieMargin}
	seen := map[constants.DocumentType]bool{}
	for i, tr := range cr.Types {
		t, err := parseRankedType(tr.Type)
		if err != nil {
			return cfg, fmt.Errorf("types[%d]: %w", i, err)
		}
		if seen[t] {
			return cfg, fmt.Errorf("types[%d]: duplicate type %s", i, t)
		}
		seen[t] = true

		ts := classify.TypeSignals{Type: t}
		for j, sr := range tr.Signals {
			sig := classify.Signal{Keyword: sr.Keyword, Weight: sr.Weight}
			set := 0
			if sr.Keyword != "" {
				set++
			}
			if sr.Regex != "" {
				re, err := regexp.Compile(sr.Regex)
				if err != nil {
					return cfg, fmt.Errorf("types[%d].signals[%d]: %w", i, j, err)
				}
				sig.Re = re
				set++
			}
			if sr.Field != "" {
				field, err := parseField(sr.Field)
				if err != nil {
					return cfg, fmt.Errorf("types[%d].signals[%d]: %w", i, j, err)
				}
				sig.Field = field
				set++
			}
			if set != 1 {
				return cfg, fmt.Errorf("types[%d].signals[%d]: exactly one of keyword, regex or field must be set", i, j)
			}
			ts.Signals = append(ts.Signals, sig)
		}
		cfg.Types = append(cfg.Types, ts)
	}
	return cfg, nil
}

func compileMatching(mr MatchingRules) (match.Config, error) {
	cfg := match.Config{
		MatchThreshold:  mr.MatchThreshold,
		MarginThreshold: mr.MarginThreshold,
		RetryThreshold:  mr.RetryThreshold,
		MaxCandidates:   mr.MaxCandidates,
		FieldSets:       map[constants.DocumentType][]match.FieldSpec{},
	}
	for i, fs := range mr.FieldSets {
		t, ok := constants.ParseDocumentType(fs.Type)
		if !ok || string(t) != fs.Type {
			return cfg, fmt.Errorf("field_sets[%d]: unknown document type %q", i, fs.Type)
		}
		if _, dup := cfg.FieldSets[t]; dup {
			return cfg, fmt.Errorf("field_sets[%d]: duplicate type %s", i, t)
		}
		specs := make([]match.FieldSpec, 0, len(fs.Fields))
		for j, mf := range fs.Fields {
			src, err := parseField(mf.Source)
			if err != nil {
				return cfg, fmt.Errorf("field_sets[%d].fields[%d]: %w", i, j, err)
			}
			specs = append(specs, match.FieldSpec{
				Column:   mf.Column,
				Source:   src,
				Method:   constants.MatchMethod(mf.Method),
				Weight:   mf.Weight,
				Required: mf.Required,
			})
		}
		cfg.FieldSets[t] = specs
	}
	return cfg, nil
}

func compileRouting(rr RoutingRules) (route.Config, error) {
	cfg := route.Config{
		MinClassificationConfidence: rr.MinClassificationConfidence,
		MinFieldConfidence:          rr.MinFieldConfidence,
		RequiredFields:              map[constants.DocumentType][]constants.FieldName{},
	}
	for i, req := range rr.RequiredFields {
		t, err := parseRankedType(req.Type)
		if err != nil {
			return cfg, fmt.Errorf("required_fields[%d]: %w", i, err)
		}
		for _, name := range req.Fields {
			field, err := parseField(name)
			if err != nil {
				return cfg, fmt.Errorf("required_fields[%d]: %w", i, err)
			}
			cfg.RequiredFields[t] = append(cfg.RequiredFields[t], field)
		}
	}
	return cfg, nil
}

func parseField(name string) (constants.FieldName, error) {
	for _, f := range constants.FieldNames {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", name)
}

// parseRankedType accepts the canonical name of a classifiable type.
func parseRankedType(name string) (constants.DocumentType, error) {
	for _, t := range constants.DocumentTypePriority {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown document type %q", name)
}
