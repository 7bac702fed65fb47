package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

func testRouter() *Router {
	return NewRouter(Config{
		MinClassificationConfidence: 0.2,
		MinFieldConfidence:          0.5,
		RequiredFields: map[constants.DocumentType][]constants.FieldName{
			constants.PropertyCertificate: {constants.FieldCertificateNo},
		},
	}, nil)
}

func certFields(conf float64) []entity.ExtractedField {
	return []entity.ExtractedField{{Name: constants.FieldCertificateNo, Value: "粤(2020)穗房地证字第001号", Confidence: conf}}
}

func TestRoute(t *testing.T) {
	cert := entity.Classification{Type: constants.PropertyCertificate, Confidence: 0.8}
	matched := entity.MatchResult{Status: constants.MatchStatusMatched, AggregateScore: 0.9, Record: &entity.PropertyRecord{RecordID: "r-1"}}

	tests := []struct {
		name   string
		cls    entity.Classification
		fields []entity.ExtractedField
		match  entity.MatchResult
		want   constants.ReviewReason
	}{
		{"accepted", cert, certFields(0.9), matched, ""},
		{"unknown type", entity.Classification{Type: constants.Unknown, Confidence: 0.9}, certFields(0.9), matched, constants.ReasonClassificationUnknown},
		{"low classification confidence", entity.Classification{Type: constants.PropertyCertificate, Confidence: 0.1}, certFields(0.9), matched, constants.ReasonClassificationUnknown},
		{"missing required field", cert, nil, matched, constants.ReasonLowExtractionConfidence},
		{"weak required field", cert, certFields(0.45), matched, constants.ReasonLowExtractionConfidence},
		{"ambiguous", cert, certFields(0.9), entity.MatchResult{Status: constants.MatchStatusAmbiguous}, constants.ReasonAmbiguous},
		{"unmatched", cert, certFields(0.9), entity.MatchResult{Status: constants.MatchStatusUnmatched}, constants.ReasonLowMatchConfidence},
		{"classification wins over match", entity.Classification{Type: constants.Unknown}, nil, entity.MatchResult{Status: constants.MatchStatusUnmatched}, constants.ReasonClassificationUnknown},
		{"extraction wins over match", cert, nil, entity.MatchResult{Status: constants.MatchStatusAmbiguous}, constants.ReasonLowExtractionConfidence},
	}

	r := testRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, entry := r.Route("doc-1", tt.cls, tt.fields, tt.match)

			assert.Equal(t, "doc-1", res.DocumentID)
			assert.NotNil(t, res.ExtractedFields)
			if tt.want == "" {
				assert.False(t, res.NeedsManualReview)
				assert.Empty(t, res.ReviewReason)
				assert.Nil(t, entry)
				return
			}
			assert.True(t, res.NeedsManualReview)
			assert.Equal(t, tt.want, res.ReviewReason)
			require.NotNil(t, entry)
			assert.Equal(t, tt.want, entry.Reason)
			assert.Equal(t, res, entry.Payload)
		})
	}
}

func TestRoute_TypesWithoutRequiredFields(t *testing.T) {
	r := testRouter()
	res, entry := r.Route("doc-2",
		entity.Classification{Type: constants.Invoice, Confidence: 0.5},
		nil,
		entity.MatchResult{Status: constants.MatchStatusMatched},
	)
	assert.False(t, res.NeedsManualReview)
	assert.Nil(t, entry)
}
