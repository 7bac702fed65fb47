package constants

// MatchStatus is the registry matcher's decision for one document.
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "Matched"
	MatchStatusAmbiguous MatchStatus = "Ambiguous"
	MatchStatusUnmatched MatchStatus = "Unmatched"
)

// ReviewReason explains why a document was sent to manual review.
// Stored as-is in doc_review_queue.reason.
type ReviewReason string

const (
	ReasonClassificationUnknown   ReviewReason = "ClassificationUnknown"
	ReasonLowExtractionConfidence ReviewReason = "LowExtractionConfidence"
	ReasonAmbiguous               ReviewReason = "Ambiguous"
	ReasonLowMatchConfidence      ReviewReason = "LowMatchConfidence"
)

// MatchMethod selects how a registry column is compared.
type MatchMethod string

const (
	MethodExact MatchMethod = "exact"
	MethodFuzzy MatchMethod = "fuzzy"
)
