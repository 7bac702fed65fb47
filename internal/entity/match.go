package entity

import "github.com/joseph-ayodele/estate-archive/constants"

// MatchCandidate is the score of one (document, record) pair.
type MatchCandidate struct {
	Record         *PropertyRecord    `json:"record"`
	FieldScores    map[string]float64 `json:"field_scores"`
	AggregateScore float64            `json:"aggregate_score"`
}

// MatchResult is the matcher's decision for a document. Record is nil when
// Status is Unmatched.
type MatchResult struct {
	Status         constants.MatchStatus `json:"status"`
	Record         *PropertyRecord       `json:"record,omitempty"`
	AggregateScore float64               `json:"aggregate_score"`
	RunnerUpScore  *float64              `json:"runner_up_score,omitempty"`
	FieldScores    map[string]float64    `json:"field_scores,omitempty"`
	// UsedValues records which extracted value was compared for each registry column.
	UsedValues map[string]string `json:"used_values,omitempty"`
	Attempts   int               `json:"attempts"`
}
