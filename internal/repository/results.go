package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/metrics"
)

const resultsTable = "doc_results"

var resultColumns = []string{
	"document_id", "batch_id", "source_path", "document_type", "classification_confidence",
	"match_status", "record_id", "aggregate_score", "needs_manual_review", "review_reason",
	"payload", "created_at",
}

// ListFilter narrows result and review listings. Zero values mean no
// filter; Offset only applies together with Limit.
type ListFilter struct {
	BatchID     string
	NeedsReview *bool
	Limit       int
	Offset      int
}

type ResultRepository interface {
	// SaveResult appends res. It reports false when a result for the
	// document already exists; stored results are never overwritten.
	SaveResult(ctx context.Context, res entity.ProcessingResult, batchID, sourcePath string) (bool, error)
	GetResult(ctx context.Context, documentID string) (*entity.StoredResult, error)
	HasResult(ctx context.Context, documentID string) (bool, error)
	ListResults(ctx context.Context, filter ListFilter) ([]entity.StoredResult, error)
}

type resultRow struct {
	DocumentID               string  `db:"document_id"`
	BatchID                  string  `db:"batch_id"`
	SourcePath               string  `db:"source_path"`
	DocumentType             string  `db:"document_type"`
	ClassificationConfidence float64 `db:"classification_confidence"`
	MatchStatus              string  `db:"match_status"`
	RecordID                 string  `db:"record_id"`
	AggregateScore           float64 `db:"aggregate_score"`
	NeedsManualReview        bool    `db:"needs_manual_review"`
	ReviewReason             string  `db:"review_reason"`
	Payload                  []byte  `db:"payload"`
	CreatedAt                int64   `db:"created_at"`
}

type resultRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewResultRepository(db *DB, logger *slog.Logger) ResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &resultRepository{db: db, logger: logger, now: time.Now}
}

func (r *resultRepository) SaveResult(ctx context.Context, res entity.ProcessingResult, batchID, sourcePath string) (bool, error) {
	if res.DocumentID == "" {
		return false, common.WrapError(common.ErrInvalidInput, "document_id is required")
	}
	payload, err := res.JSON()
	if err != nil {
		return false, fmt.Errorf("encode result: %w", err)
	}
	recordID := ""
	if res.MatchResult.Record != nil {
		recordID = res.MatchResult.Record.RecordID
	}

	b := entsql.Dialect(r.db.Dialect)
	query, args := b.Insert(resultsTable).
		Columns(resultColumns...).
		Values(
			res.DocumentID, batchID, sourcePath, string(res.DocumentType), res.ClassificationConfidence,
			string(res.MatchResult.Status), recordID, res.MatchResult.AggregateScore, res.NeedsManualReview,
			string(res.ReviewReason), string(payload), r.now().UTC().UnixMilli(),
		).
		OnConflict(entsql.ConflictColumns("document_id"), entsql.DoNothing()).
		Query()

	start := time.Now()
	out, err := r.db.ExecContext(ctx, query, args...)
	metrics.RecordQuery("save_result", time.Since(start).Seconds())
	if err != nil {
		r.logger.Error("failed to save result", "document_id", res.DocumentID, "error", err)
		return false, fmt.Errorf("%w: insert result: %w", common.ErrDatabase, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %w", common.ErrDatabase, err)
	}
	if n == 0 {
		r.logger.Debug("repository.result_exists", "document_id", res.DocumentID)
		return false, nil
	}
	return true, nil
}

func (r *resultRepository) GetResult(ctx context.Context, documentID string) (*entity.StoredResult, error) {
	b := entsql.Dialect(r.db.Dialect)
	query, args := b.Select(resultColumns...).
		From(b.Table(resultsTable)).
		Where(entsql.EQ("document_id", documentID)).
		Query()

	var row resultRow
	start := time.Now()
	err := r.db.GetContext(ctx, &row, query, args...)
	metrics.RecordQuery("get_result", time.Since(start).Seconds())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.WrapError(common.ErrNotFound, "result "+documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get result: %w", common.ErrDatabase, err)
	}
	out, err := row.toEntity()
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *resultRepository) HasResult(ctx context.Context, documentID string) (bool, error) {
	b := entsql.Dialect(r.db.Dialect)
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(resultsTable)).
		Where(entsql.EQ("document_id", documentID)).
		Query()

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("%w: count result: %w", common.ErrDatabase, err)
	}
	return n > 0, nil
}

// ListResults returns results oldest first, with document_id breaking ties.
func (r *resultRepository) ListResults(ctx context.Context, filter ListFilter) ([]entity.StoredResult, error) {
	b := entsql.Dialect(r.db.Dialect)
	sel := b.Select(resultColumns...).
		From(b.Table(resultsTable)).
		OrderBy("created_at", "document_id")

	var preds []*entsql.Predicate
	if filter.BatchID != "" {
		preds = append(preds, entsql.EQ("batch_id", filter.BatchID))
	}
	if filter.NeedsReview != nil {
		preds = append(preds, entsql.EQ("needs_manual_review", *filter.NeedsReview))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	if filter.Limit > 0 {
		sel = sel.Limit(filter.Limit)
		if filter.Offset > 0 {
			sel = sel.Offset(filter.Offset)
		}
	}
	query, args := sel.Query()

	var rows []resultRow
	start := time.Now()
	err := r.db.SelectContext(ctx, &rows, query, args...)
	metrics.RecordQuery("list_results", time.Since(start).Seconds())
	if err != nil {
		r.logger.Error("failed to list results", "batch_id", filter.BatchID, "error", err)
		return nil, fmt.Errorf("%w: list results: %w", common.ErrDatabase, err)
	}

	out := make([]entity.StoredResult, 0, len(rows))
	for _, row := range rows {
		sr, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, nil
}

func (row resultRow) toEntity() (entity.StoredResult, error) {
	var res entity.ProcessingResult
	if err := json.Unmarshal(row.Payload, &res); err != nil {
		return entity.StoredResult{}, fmt.Errorf("decode result %s: %w", row.DocumentID, err)
	}
	if res.DocumentType == "" {
		res.DocumentType = constants.DocumentType(row.DocumentType)
	}
	return entity.StoredResult{
		BatchID:    row.BatchID,
		SourcePath: row.SourcePath,
		CreatedAt:  time.UnixMilli(row.CreatedAt).UTC(),
		Result:     res,
	}, nil
}
