package entity

import "time"

// StoredResult is a processing result as archived in doc_results.
type StoredResult struct {
	BatchID    string           `json:"batch_id,omitempty"`
	SourcePath string           `json:"source_path,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	Result     ProcessingResult `json:"result"`
}

// StoredReview is a review queue entry plus its resolution state.
type StoredReview struct {
	BatchID    string           `json:"batch_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	Resolution string           `json:"resolution,omitempty"`
	Entry      ReviewQueueEntry `json:"entry"`
}

// Pending reports whether no reviewer has resolved the entry yet.
func (r StoredReview) Pending() bool { return r.ResolvedAt == nil }
