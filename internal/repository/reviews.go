package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/metrics"
)

const reviewTable = "doc_review_queue"

var reviewColumns = []string{"document_id", "batch_id", "reason", "payload", "created_at", "resolved_at", "resolution"}

type ReviewRepository interface {
	// Enqueue appends entry; a second entry for the same document is ignored.
	Enqueue(ctx context.Context, entry entity.ReviewQueueEntry, batchID string) (bool, error)
	// ListReviews returns entries oldest first. pendingOnly hides resolved ones.
	ListReviews(ctx context.Context, pendingOnly bool, filter ListFilter) ([]entity.StoredReview, error)
	// Resolve marks a pending entry as handled by a reviewer.
	Resolve(ctx context.Context, documentID, resolution string) error
}

type reviewRow struct {
	DocumentID string        `db:"document_id"`
	BatchID    string        `db:"batch_id"`
	Reason     string        `db:"reason"`
	Payload    []byte        `db:"payload"`
	CreatedAt  int64         `db:"created_at"`
	ResolvedAt sql.NullInt64 `db:"resolved_at"`
	Resolution string        `db:"resolution"`
}

type reviewRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewReviewRepository(db *DB, logger *slog.Logger) ReviewRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &reviewRepository{db: db, logger: logger, now: time.Now}
}

func (r *reviewRepository) Enqueue(ctx context.Context, entry entity.ReviewQueueEntry, batchID string) (bool, error) {
	if entry.DocumentID == "" {
		return false, common.WrapError(common.ErrInvalidInput, "document_id is required")
	}
	payload, err := entry.Payload.JSON()
	if err != nil {
		return false, fmt.Errorf("encode review payload: %w", err)
	}

	b := entsql.Dialect(r.db.Dialect)
	query, args := b.Insert(reviewTable).
		Columns("document_id", "batch_id", "reason", "payload", "created_at").
		Values(entry.DocumentID, batchID, string(entry.Reason), string(payload), r.now().UTC().UnixMilli()).
		OnConflict(entsql.ConflictColumns("document_id"), entsql.DoNothing()).
		Query()

	start := time.Now()
	out, err := r.db.ExecContext(ctx, query, args...)
	metrics.RecordQuery("enqueue_review", time.Since(start).Seconds())
	if err != nil {
		r.logger.Error("failed to enqueue review", "document_id", entry.DocumentID, "error", err)
		return false, fmt.Errorf("%w: insert review: %w", common.ErrDatabase, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %w", common.ErrDatabase, err)
	}
	return n > 0, nil
}

func (r *reviewRepository) ListReviews(ctx context.Context, pendingOnly bool, filter ListFilter) ([]entity.StoredReview, error) {
	b := entsql.Dialect(r.db.Dialect)
	sel := b.Select(reviewColumns...).
		From(b.Table(reviewTable)).
		OrderBy("created_at", "document_id")

	var preds []*entsql.Predicate
	if pendingOnly {
		preds = append(preds, entsql.IsNull("resolved_at"))
	}
	if filter.BatchID != "" {
		preds = append(preds, entsql.EQ("batch_id", filter.BatchID))
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

	var rows []reviewRow
	start := time.Now()
	err := r.db.SelectContext(ctx, &rows, query, args...)
	metrics.RecordQuery("list_reviews", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: list reviews: %w", common.ErrDatabase, err)
	}

	out := make([]entity.StoredReview, 0, len(rows))
	for _, row := range rows {
		var payload entity.ProcessingResult
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode review %s: %w", row.DocumentID, err)
		}
		sr := entity.StoredReview{
			BatchID:    row.BatchID,
			CreatedAt:  time.UnixMilli(row.CreatedAt).UTC(),
			Resolution: row.Resolution,
			Entry: entity.ReviewQueueEntry{
				DocumentID: row.DocumentID,
				Reason:     payload.ReviewReason,
				Payload:    payload,
			},
		}
		if sr.Entry.Reason == "" {
			sr.Entry.Reason = constants.ReviewReason(row.Reason)
		}
		if row.ResolvedAt.Valid {
			t := time.UnixMilli(row.ResolvedAt.Int64).UTC()
			sr.ResolvedAt = &t
		}
		out = append(out, sr)
	}
	return out, nil
}

func (r *reviewRepository) Resolve(ctx context.Context, documentID, resolution string) error {
	b := entsql.Dialect(r.db.Dialect)
	query, args := b.Update(reviewTable).
		Set("resolved_at", r.now().UTC().UnixMilli()).
		Set("resolution", resolution).
		Where(entsql.And(entsql.EQ("document_id", documentID), entsql.IsNull("resolved_at"))).
		Query()

	out, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: resolve review: %w", common.ErrDatabase, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", common.ErrDatabase, err)
	}
	if n == 0 {
		return common.WrapError(common.ErrNotFound, "pending review "+documentID)
	}
	r.logger.Info("review resolved", "document_id", documentID, "resolution", resolution)
	return nil
}
