package entity

import (
	"encoding/json"

	"github.com/joseph-ayodele/estate-archive/constants"
)

// ProcessingResult is the final, immutable output for one document.
type ProcessingResult struct {
	DocumentID               string                 `json:"document_id"`
	DocumentType             constants.DocumentType `json:"document_type"`
	ClassificationConfidence float64                `json:"classification_confidence"`
	ExtractedFields          []ExtractedField       `json:"extracted_fields"`
	MatchResult              MatchResult            `json:"match_result"`
	NeedsManualReview        bool                   `json:"needs_manual_review"`
	ReviewReason             constants.ReviewReason `json:"review_reason,omitempty"`
}

// JSON renders the result canonically. Map keys are sorted by encoding/json,
// so equal results always produce equal bytes.
func (r ProcessingResult) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// ReviewQueueEntry exists for a document iff its result needs manual review.
type ReviewQueueEntry struct {
	DocumentID string                 `json:"document_id"`
	Reason     constants.ReviewReason `json:"reason"`
	Payload    ProcessingResult       `json:"payload"`
}
