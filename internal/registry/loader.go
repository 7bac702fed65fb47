package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

// headerAliases maps spreadsheet headers seen in registry exports to columns.
var headerAliases = map[string]string{
	"id":     constants.ColumnRecordID,
	"编号":     constants.ColumnRecordID,
	"记录编号":   constants.ColumnRecordID,
	"证书编号":   constants.ColumnCertificateNo,
	"产权证号":   constants.ColumnCertificateNo,
	"房产证号":   constants.ColumnCertificateNo,
	"不动产权证号": constants.ColumnCertificateNo,
	"产权人":    constants.ColumnOwnerName,
	"权利人":    constants.ColumnOwnerName,
	"业主":     constants.ColumnOwnerName,
	"owner":  constants.ColumnOwnerName,
	"地址":     constants.ColumnAddress,
	"坐落":     constants.ColumnAddress,
	"房屋坐落":   constants.ColumnAddress,
	"房号":     constants.ColumnUnitNo,
	"房屋编号":   constants.ColumnUnitNo,
	"unit":   constants.ColumnUnitNo,
	"身份证号":   constants.ColumnIDNumber,
	"证件号码":   constants.ColumnIDNumber,
}

// ErrNoHeader is returned when a registry source has no header row.
var ErrNoHeader = errors.New("registry: missing header row")

// LoadFile loads a registry from a .csv or .xlsx file.
func LoadFile(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			logger.Warn("close registry file", "path", path, "error", err)
		}
	}(f)

	var recs []entity.PropertyRecord
	switch ext := constants.NormalizeExt(filepath.Ext(path)); ext {
	case "csv":
		recs, err = ReadCSV(f)
	case "xlsx", "xlsm":
		recs, err = ReadXLSX(f, "")
	default:
		return nil, fmt.Errorf("unsupported registry format %q", ext)
	}
	if err != nil {
		logger.Error("failed to load registry", "path", path, "error", err)
		return nil, err
	}
	logger.Info("registry loaded", "path", path, "records", len(recs))
	return New(recs, path), nil
}

// ReadCSV reads records from CSV with a header row.
func ReadCSV(r io.Reader) ([]entity.PropertyRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return FromRows(rows)
}

// ReadXLSX reads records from the named sheet, or the first sheet when sheet is empty.
func ReadXLSX(r io.Reader, sheet string) ([]entity.PropertyRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoHeader
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return FromRows(rows)
}

// FromRows converts a header row plus data rows into records. Blank rows are
// skipped; a missing record_id becomes "row-N" with N the 1-based data row.
func FromRows(rows [][]string) ([]entity.PropertyRecord, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = canonicalColumn(h)
	}

	recs := make([]entity.PropertyRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := entity.PropertyRecord{}
		for i, col := range header {
			if i >= len(row) || col == "" {
				continue
			}
			setColumn(&rec, col, strings.TrimSpace(row[i]))
		}
		if rec.RecordID == "" {
			rec.RecordID = fmt.Sprintf("row-%d", n+1)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func canonicalColumn(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	l := strings.ToLower(h)
	if c, ok := headerAliases[l]; ok {
		return c
	}
	return l
}

func setColumn(rec *entity.PropertyRecord, col, v string) {
	switch col {
	case constants.ColumnRecordID:
		rec.RecordID = v
	case constants.ColumnCertificateNo:
		rec.CertificateNo = v
	case constants.ColumnOwnerName:
		rec.OwnerName = v
	case constants.ColumnAddress:
		rec.Address = v
	case constants.ColumnUnitNo:
		rec.UnitNo = v
	case constants.ColumnIDNumber:
		rec.IDNumber = v
	default:
		if v == "" {
			return
		}
		if rec.Extra == nil {
			rec.Extra = map[string]string{}
		}
		rec.Extra[col] = v
	}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
