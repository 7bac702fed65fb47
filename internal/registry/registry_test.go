package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

const sampleCSV = `证书编号,产权人,地址,房号,身份证号,楼盘
粤(2020)穗房地证字第001号,张三,广州市天河区xx路1号,1-101,11010519491231002X,天河花园
,,,,,
粤（2020）穗房地证字第002号,李四,广州市越秀区yy路2号,2-202,,
`

func TestReadCSV(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "row-1", recs[0].RecordID)
	assert.Equal(t, "粤(2020)穗房地证字第001号", recs[0].CertificateNo)
	assert.Equal(t, "张三", recs[0].OwnerName)
	assert.Equal(t, "1-101", recs[0].UnitNo)
	assert.Equal(t, "11010519491231002X", recs[0].IDNumber)
	assert.Equal(t, map[string]string{"楼盘": "天河花园"}, recs[0].Extra)

	assert.Equal(t, "row-3", recs[1].RecordID, "blank rows keep numbering")
	assert.Nil(t, recs[1].Extra)
}

func TestFromRowsNoHeader(t *testing.T) {
	_, err := FromRows(nil)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"record_id", "certificate_no", "owner_name", "address"},
		{"P-1", "粤(2020)穗房地证字第001号", "张三", "广州市天河区xx路1号"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	recs, err := ReadXLSX(buf, "")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, entity.PropertyRecord{
		RecordID:      "P-1",
		CertificateNo: "粤(2020)穗房地证字第001号",
		OwnerName:     "张三",
		Address:       "广州市天河区xx路1号",
	}, recs[0])
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	reg, err := LoadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, path, reg.Source())

	_, err = LoadFile(filepath.Join(dir, "registry.json"), nil)
	assert.Error(t, err)
}

func TestRegistryIsImmutable(t *testing.T) {
	recs := []entity.PropertyRecord{{RecordID: "a", OwnerName: "张三", Extra: map[string]string{"k": "v"}}}
	reg := New(recs, "test")

	recs[0].OwnerName = "王五"
	recs[0].Extra["k"] = "changed"
	got := reg.Record(0)
	assert.Equal(t, "张三", got.OwnerName)
	assert.Equal(t, "v", got.Extra["k"])

	got.Extra["k"] = "mutated"
	assert.Equal(t, "v", reg.Record(0).Extra["k"])

	all := reg.Records()
	require.Len(t, all, 1)
	all[0].Extra["k"] = "mutated"
	assert.Equal(t, "v", reg.Record(0).Extra["k"])
}

func TestPreparedValues(t *testing.T) {
	reg := New([]entity.PropertyRecord{{RecordID: "a", CertificateNo: "粤（2020） 穗房地证字第001号", Address: "广州市天河区xx路1号"}}, "test")

	assert.Equal(t, "粤(2020)穗房地证字第001号", reg.Value(0, "certificate_no").Key)
	assert.Equal(t, []string{"广州市", "天河区", "xx路", "1号"}, reg.Value(0, "address").Tokens)
	assert.True(t, reg.Value(0, "owner_name").Empty())
	assert.Contains(t, reg.Columns(), "unit_no")
}
