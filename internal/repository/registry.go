package repository

import (
	"context"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/registry"
)

const registryTable = "property_registry"

var registryColumns = []string{"record_id", "certificate_no", "owner_name", "address", "unit_no", "id_number", "position"}

// RegistryRepository stores the property registry as a table. Extra columns
// from spreadsheet sources are not persisted.
type RegistryRepository interface {
	// ReplaceRegistry swaps the stored registry for recs in one transaction.
	ReplaceRegistry(ctx context.Context, recs []entity.PropertyRecord) error
	// LoadRegistry snapshots the table, in import order.
	LoadRegistry(ctx context.Context) (*registry.Registry, error)
}

type registryRow struct {
	RecordID      string `db:"record_id"`
	CertificateNo string `db:"certificate_no"`
	OwnerName     string `db:"owner_name"`
	Address       string `db:"address"`
	UnitNo        string `db:"unit_no"`
	IDNumber      string `db:"id_number"`
	Position      int    `db:"position"`
}

type registryRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRegistryRepository(db *DB, logger *slog.Logger) RegistryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &registryRepository{db: db, logger: logger}
}

func (r *registryRepository) ReplaceRegistry(ctx context.Context, recs []entity.PropertyRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", common.ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Warn("rollback registry import", "error", rbErr)
			}
		}
	}()

	b := entsql.Dialect(r.db.Dialect)
	del, delArgs := b.Delete(registryTable).Query()
	if _, err = tx.ExecContext(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("%w: clear registry: %w", common.ErrDatabase, err)
	}
	for i, rec := range recs {
		query, args := b.Insert(registryTable).
			Columns(registryColumns...).
			Values(rec.RecordID, rec.CertificateNo, rec.OwnerName, rec.Address, rec.UnitNo, rec.IDNumber, i).
			Query()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: insert record %s: %w", common.ErrDatabase, rec.RecordID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", common.ErrDatabase, err)
	}
	r.logger.Info("registry stored", "records", len(recs))
	return nil
}

func (r *registryRepository) LoadRegistry(ctx context.Context) (*registry.Registry, error) {
	b := entsql.Dialect(r.db.Dialect)
	query, args := b.Select(registryColumns...).
		From(b.Table(registryTable)).
		OrderBy("position").
		Query()

	var rows []registryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: load registry: %w", common.ErrDatabase, err)
	}
	recs := make([]entity.PropertyRecord, len(rows))
	for i, row := range rows {
		recs[i] = entity.PropertyRecord{
			RecordID:      row.RecordID,
			CertificateNo: row.CertificateNo,
			OwnerName:     row.OwnerName,
			Address:       row.Address,
			UnitNo:        row.UnitNo,
			IDNumber:      row.IDNumber,
		}
	}
	r.logger.Info("registry loaded", "source", registryTable, "records", len(recs))
	return registry.New(recs, "db:"+registryTable), nil
}
