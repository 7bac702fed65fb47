// Package export renders archived results and the review queue as XLSX.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
)

const (
	ResultsSheet = "Results"
	ReviewSheet  = "Review Queue"
)

var resultHeaders = []string{
	"Document ID",
	"Source Path",
	"Batch ID",
	"Document Type",
	"Classification Confidence",
	"Certificate No",
	"Person Name",
	"Address",
	"Match Status",
	"Record ID",
	"Aggregate Score",
	"Runner-Up Score",
	"Attempts",
	"Needs Review",
	"Review Reason",
	"Processed At",
}

var reviewHeaders = []string{
	"Document ID",
	"Reason",
	"Document Type",
	"Match Status",
	"Best Record",
	"Aggregate Score",
	"Queued At",
	"Resolved At",
	"Resolution",
}

// Service is a small façade over repositories that produces XLSX bytes.
type Service struct {
	results repository.ResultRepository
	reviews repository.ReviewRepository
	logger  *slog.Logger
}

func NewService(results repository.ResultRepository, reviews repository.ReviewRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{results: results, reviews: reviews, logger: logger}
}

// ExportXLSX returns a workbook with every stored result matching filter
// and the review entries of the same batch (all batches when BatchID is empty).
func (s *Service) ExportXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	results, err := s.results.ListResults(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	reviews, err := s.reviews.ListReviews(ctx, false, repository.ListFilter{BatchID: filter.BatchID})
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}

	f, err := BuildWorkbook(results, reviews)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"batch_id", filter.BatchID,
		"rows", len(results),
		"reviews", len(reviews),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// BuildWorkbook lays out results and reviews on two sheets.
func BuildWorkbook(results []entity.StoredResult, reviews []entity.StoredReview) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ReviewSheet); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	writeHeader(f, ResultsSheet, resultHeaders)
	for i, sr := range results {
		res := sr.Result
		mr := res.MatchResult
		recordID := ""
		if mr.Record != nil {
			recordID = mr.Record.RecordID
		}
		var runnerUp any = ""
		if mr.RunnerUpScore != nil {
			runnerUp = round(*mr.RunnerUpScore)
		}
		writeRow(f, ResultsSheet, i+2, []any{
			res.DocumentID,
			sr.SourcePath,
			sr.BatchID,
			string(res.DocumentType),
			round(res.ClassificationConfidence),
			bestValue(res.ExtractedFields, constants.FieldCertificateNo),
			bestValue(res.ExtractedFields, constants.FieldPersonName),
			truncate(bestValue(res.ExtractedFields, constants.FieldAddress), 140),
			string(mr.Status),
			recordID,
			round(mr.AggregateScore),
			runnerUp,
			mr.Attempts,
			res.NeedsManualReview,
			string(res.ReviewReason),
			formatTime(sr.CreatedAt),
		})
	}

	writeHeader(f, ReviewSheet, reviewHeaders)
	for i, rv := range reviews {
		p := rv.Entry.Payload
		best := ""
		if p.MatchResult.Record != nil {
			best = p.MatchResult.Record.RecordID
		}
		resolved := ""
		if rv.ResolvedAt != nil {
			resolved = formatTime(*rv.ResolvedAt)
		}
		writeRow(f, ReviewSheet, i+2, []any{
			rv.Entry.DocumentID,
			string(rv.Entry.Reason),
			string(p.DocumentType),
			string(p.MatchResult.Status),
			best,
			round(p.MatchResult.AggregateScore),
			formatTime(rv.CreatedAt),
			resolved,
			rv.Resolution,
		})
	}

	_ = f.SetColWidth(ResultsSheet, "A", "C", 24) // ids, path
	_ = f.SetColWidth(ResultsSheet, "D", "E", 16)
	_ = f.SetColWidth(ResultsSheet, "F", "F", 30) // certificate
	_ = f.SetColWidth(ResultsSheet, "H", "H", 48) // address
	_ = f.SetColWidth(ReviewSheet, "A", "A", 24)
	_ = f.SetColWidth(ReviewSheet, "B", "B", 26)
	_ = f.SetColWidth(ReviewSheet, "I", "I", 40)
	return f, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func bestValue(fields []entity.ExtractedField, name constants.FieldName) string {
	if f, ok := entity.BestCandidate(fields, name); ok {
		return f.Value
	}
	return ""
}

func round(f float64) float64 {
	return float64(int64(f*10000+0.5)) / 10000
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
