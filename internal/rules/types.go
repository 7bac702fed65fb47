// Package rules loads the data-driven rule set: field patterns, classifier
// signals, match field sets and routing thresholds. Any defect in the rule
// file is reported at load time.
package rules

// File mirrors the YAML rule document.
type File struct {
	Version    int             `yaml:"version" validate:"eq=1"`
	// Labels are the field captions of the documents. Patterns refer to
	// them as {{labels}} to stop a capture at the next caption.
	Labels     []string        `yaml:"labels,omitempty" validate:"dive,required"`
	Fields     []FieldRule     `yaml:"fields" validate:"required,min=1,dive"`
	Classifier ClassifierRules `yaml:"classifier"`
	Matching   MatchingRules   `yaml:"matching"`
	Routing    RoutingRules    `yaml:"routing"`
}

type FieldRule struct {
	Name       string        `yaml:"name" validate:"required"`
	Field      string        `yaml:"field" validate:"required"`
	Confidence float64       `yaml:"confidence" validate:"gte=0,lte=1"`
	Validator  string        `yaml:"validator,omitempty"`
	Transforms []string      `yaml:"transforms,omitempty"`
	Patterns   []PatternRule `yaml:"patterns" validate:"required,min=1,dive"`
}

type PatternRule struct {
	Regex string `yaml:"regex" validate:"required"`
	// Group is the capture group holding the value, 0 for the whole match.
	Group int `yaml:"group" validate:"gte=0"`
}

type ClassifierRules struct {
	MinScore  float64     `yaml:"min_score" validate:"gte=0,lte=1"`
	TieMargin float64     `yaml:"tie_margin" validate:"gte=0,lte=1"`
	Types     []TypeRules `yaml:"types" validate:"required,min=1,dive"`
}

type TypeRules struct {
	Type    string       `yaml:"type" validate:"required"`
	Signals []SignalRule `yaml:"signals" validate:"required,min=1,dive"`
}

// SignalRule sets exactly one of Keyword, Regex or Field.
type SignalRule struct {
	Keyword string  `yaml:"keyword,omitempty"`
	Regex   string  `yaml:"regex,omitempty"`
	Field   string  `yaml:"field,omitempty"`
	Weight  float64 `yaml:"weight" validate:"gt=0"`
}

type MatchingRules struct {
	MatchThreshold  float64         `yaml:"match_threshold" validate:"gte=0,lte=1"`
	MarginThreshold float64         `yaml:"margin_threshold" validate:"gte=0,lte=1"`
	RetryThreshold  float64         `yaml:"retry_threshold" validate:"gte=0,lte=1"`
	MaxCandidates   int             `yaml:"max_candidates" validate:"gte=1"`
	FieldSets       []FieldSetRules `yaml:"field_sets" validate:"required,min=1,dive"`
}

type FieldSetRules struct {
	Type   string           `yaml:"type" validate:"required"`
	Fields []MatchFieldRule `yaml:"fields" validate:"required,min=1,dive"`
}

type MatchFieldRule struct {
	Column   string  `yaml:"column" validate:"required"`
	Source   string  `yaml:"source" validate:"required"`
	Method   string  `yaml:"method" validate:"oneof=exact fuzzy"`
	Weight   float64 `yaml:"weight" validate:"gt=0"`
	Required bool    `yaml:"required,omitempty"`
}

type RoutingRules struct {
	MinClassificationConfidence float64              `yaml:"min_classification_confidence" validate:"gte=0,lte=1"`
	MinFieldConfidence          float64              `yaml:"min_field_confidence" validate:"gte=0,lte=1"`
	RequiredFields              []RequiredFieldsRule `yaml:"required_fields,omitempty" validate:"dive"`
}

type RequiredFieldsRule struct {
	Type   string   `yaml:"type" validate:"required"`
	Fields []string `yaml:"fields" validate:"required,min=1"`
}
