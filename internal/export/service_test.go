package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
)

func matched(id string) entity.ProcessingResult {
	runnerUp := 0.25
	return entity.ProcessingResult{
		DocumentID:               id,
		DocumentType:             constants.PropertyCertificate,
		ClassificationConfidence: 0.47619,
		ExtractedFields: []entity.ExtractedField{
			{Name: constants.FieldCertificateNo, Value: "粤(2020)穗房地证字第001号", Confidence: 0.95},
			{Name: constants.FieldPersonName, Value: "张三", Confidence: 0.9},
		},
		MatchResult: entity.MatchResult{
			Status:         constants.MatchStatusMatched,
			Record:         &entity.PropertyRecord{RecordID: "r-1"},
			AggregateScore: 1,
			RunnerUpScore:  &runnerUp,
			Attempts:       1,
		},
	}
}

func TestBuildWorkbook(t *testing.T) {
	review := matched("doc-2")
	review.NeedsManualReview = true
	review.ReviewReason = constants.ReasonAmbiguous
	review.MatchResult.Status = constants.MatchStatusAmbiguous

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f, err := BuildWorkbook(
		[]entity.StoredResult{
			{BatchID: "b-1", SourcePath: "/in/a.pdf", CreatedAt: created, Result: matched("doc-1")},
			{BatchID: "b-1", CreatedAt: created, Result: review},
		},
		[]entity.StoredReview{{BatchID: "b-1", CreatedAt: created, Entry: entity.ReviewQueueEntry{DocumentID: "doc-2", Reason: constants.ReasonAmbiguous, Payload: review}}},
	)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ResultsSheet, ReviewSheet}, f.GetSheetList())

	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, resultHeaders, rows[0])
	assert.Equal(t, "doc-1", rows[1][0])
	assert.Equal(t, "/in/a.pdf", rows[1][1])
	assert.Equal(t, "粤(2020)穗房地证字第001号", rows[1][5])
	assert.Equal(t, "张三", rows[1][6])
	assert.Equal(t, "Matched", rows[1][8])
	assert.Equal(t, "r-1", rows[1][9])
	assert.Equal(t, "0.4762", rows[1][4])
	assert.Equal(t, "2026-01-02T03:04:05Z", rows[1][15])

	reviewRows, err := f.GetRows(ReviewSheet)
	require.NoError(t, err)
	require.Len(t, reviewRows, 2)
	assert.Equal(t, "Ambiguous", reviewRows[1][1])
	assert.Equal(t, "r-1", reviewRows[1][4])
}

func TestService_ExportXLSX(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, common.DatabaseConfig{DSN: ":memory:", DialTimeout: time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(db, nil))

	results := repository.NewResultRepository(db, nil)
	_, err = results.SaveResult(ctx, matched("doc-1"), "b-1", "")
	require.NoError(t, err)
	_, err = results.SaveResult(ctx, matched("doc-9"), "b-2", "")
	require.NoError(t, err)

	svc := NewService(results, repository.NewReviewRepository(db, nil), nil)
	data, err := svc.ExportXLSX(ctx, repository.ListFilter{BatchID: "b-1"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "doc-1", rows[1][0])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "广州市…", truncate("广州市天河区", 4))
	assert.Equal(t, "abc", truncate("abc", 10))
}
