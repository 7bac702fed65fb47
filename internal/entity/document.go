package entity

import "github.com/joseph-ayodele/estate-archive/constants"

// Document is one unit of work for the pipeline: raw OCR text plus the
// identifier that travels with every result.
type Document struct {
	ID         string `json:"document_id"`
	RawText    string `json:"raw_text"`
	SourcePath string `json:"source_path,omitempty"`
}

// Span is a byte offset range into the normalized text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ExtractedField is one candidate value for a field.
type ExtractedField struct {
	Name       constants.FieldName `json:"name"`
	Value      string              `json:"value"`
	Confidence float64             `json:"confidence"`
	SourceSpan *Span               `json:"source_span,omitempty"`
}

// Candidates returns the candidates for name in the order the extractor ranked them.
func Candidates(fields []ExtractedField, name constants.FieldName) []ExtractedField {
	var out []ExtractedField
	for _, f := range fields {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// BestCandidate returns the highest ranked candidate for name.
func BestCandidate(fields []ExtractedField, name constants.FieldName) (ExtractedField, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return ExtractedField{}, false
}

// Classification is the classifier's verdict. Scores holds the normalized
// score of every known type, which keeps near misses visible to reviewers.
type Classification struct {
	Type       constants.DocumentType             `json:"type"`
	Confidence float64                            `json:"confidence"`
	Scores     map[constants.DocumentType]float64 `json:"scores,omitempty"`
}
