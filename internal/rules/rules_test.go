package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/core/extract"
	"github.com/joseph-ayodele/estate-archive/internal/core/normalize"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

const minimalRules = `
version: 1
fields:
  - name: cert
    field: certificate_no
    confidence: 0.9
    validator: certificate_no
    transforms: [compact]
    patterns:
      - regex: '编号:(\S+号)'
        group: 1
classifier:
  min_score: 0.2
  tie_margin: 0.05
  types:
    - type: PropertyCertificate
      signals:
        - {keyword: 房产证, weight: 1}
        - {field: certificate_no, weight: 1}
matching:
  match_threshold: 0.8
  margin_threshold: 0.05
  retry_threshold: 0.6
  max_candidates: 2
  field_sets:
    - type: PropertyCertificate
      fields:
        - {column: certificate_no, source: certificate_no, method: exact, weight: 1, required: true}
routing:
  min_classification_confidence: 0.3
  min_field_confidence: 0.5
  required_fields:
    - type: PropertyCertificate
      fields: [certificate_no]
`

func TestDefault(t *testing.T) {
	rs, err := Default()
	require.NoError(t, err)

	assert.Equal(t, DefaultSource, rs.Source)
	assert.Len(t, rs.Digest, 64)
	assert.NotEmpty(t, rs.Extract)
	assert.Len(t, rs.Classify.Types, len(constants.DocumentTypePriority))
	assert.Equal(t, 0.75, rs.Match.MatchThreshold)
	assert.Equal(t, 3, rs.Match.MaxCandidates)
	assert.Contains(t, rs.Match.FieldSets, constants.Unknown)
	assert.Equal(t, []constants.FieldName{constants.FieldCertificateNo}, rs.Route.RequiredFields[constants.PropertyCertificate])

	var weight float64
	for _, spec := range rs.Match.FieldSets[constants.PropertyCertificate] {
		weight += spec.Weight
	}
	assert.InDelta(t, 1.0, weight, 1e-9)

	for _, typ := range []constants.DocumentType{constants.Contract, constants.SupplementaryAgreement} {
		var columns []string
		for _, spec := range rs.Match.FieldSets[typ] {
			columns = append(columns, spec.Column)
		}
		assert.Contains(t, columns, constants.ColumnUnitNo, "%s compares unit_no", typ)
		assert.Contains(t, columns, constants.ColumnOwnerName, "%s compares owner_name", typ)
	}
}

func TestParse_Minimal(t *testing.T) {
	rs, err := Parse([]byte(minimalRules), "inline")
	require.NoError(t, err)

	require.Len(t, rs.Extract, 1)
	rule := rs.Extract[0]
	assert.Equal(t, constants.FieldCertificateNo, rule.Field)
	assert.NotNil(t, rule.Validator)
	assert.Len(t, rule.Transforms, 1)
	assert.Equal(t, 1, rule.Patterns[0].Group)
	assert.True(t, rs.Match.FieldSets[constants.PropertyCertificate][0].Required)
	assert.Equal(t, constants.MethodExact, rs.Match.FieldSets[constants.PropertyCertificate][0].Method)
	assert.Equal(t, 0.3, rs.Route.MinClassificationConfidence)
}

func TestParse_Digest(t *testing.T) {
	a, err := Parse([]byte(minimalRules), "a")
	require.NoError(t, err)
	b, err := Parse([]byte(minimalRules), "b")
	require.NoError(t, err)
	c, err := Parse([]byte(strings.Replace(minimalRules, "0.9", "0.85", 1)), "c")
	require.NoError(t, err)

	assert.Equal(t, a.Digest, b.Digest)
	assert.NotEqual(t, a.Digest, c.Digest)
}

func TestParse_Fatal(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{"bad regex", `'编号:(\S+号)'`, `'编号:(\S+号'`, "compile rules"},
		{"group out of range", "group: 1", "group: 3", "compile rules"},
		{"unknown validator", "validator: certificate_no", "validator: checksum", "schema"},
		{"unknown transform", "[compact]", "[shout]", "schema"},
		{"unknown field", "field: certificate_no", "field: parcel_no", "schema"},
		{"threshold above one", "match_threshold: 0.8", "match_threshold: 1.8", "schema"},
		{"unknown method", "method: exact", "method: phonetic", "schema"},
		{"unknown key", "max_candidates: 2", "max_candidates: 2\n  max_retries: 4", "schema"},
		{"unknown type", "- type: PropertyCertificate\n      signals", "- type: Deed\n      signals", "schema"},
		{"signal with two kinds", "{keyword: 房产证, weight: 1}", "{keyword: 房产证, field: area, weight: 1}", "schema"},
		{"zero candidates", "max_candidates: 2", "max_candidates: 0", "schema"},
		{"not yaml", "version: 1", "version: [1", "parse yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(minimalRules, tt.from, tt.to, 1)
			require.NotEqual(t, minimalRules, doc, "fixture replacement did not apply")

			rs, err := Parse([]byte(doc), "inline")

			require.Error(t, err)
			assert.Nil(t, rs)
			assert.True(t, errors.Is(err, common.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(nil, "empty")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConfig))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalRules), 0o600))

	rs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, rs.Source)

	rs, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSource, rs.Source)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, common.ErrConfig))
}

func TestDefaultYAMLRoundTrips(t *testing.T) {
	rs, err := Parse(DefaultYAML(), "copy")
	require.NoError(t, err)
	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, def.Digest, rs.Digest)
}

func TestDefault_PersonNameStopsAtNextLabel(t *testing.T) {
	rs, err := Default()
	require.NoError(t, err)
	ex := extract.NewExtractor(rs.Extract, nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"gender", "房产证\n产权人：张三\n性别：男", "张三"},
		{"unit number", "房屋买卖合同\n买受人：张三\n房号：1203", "张三"},
		{"floor area", "房产证\n产权人：张三\n建筑面积：89.5平方米", "张三"},
		{"registration date", "不动产权证书\n权利人：王小明\n登记日期：2020年1月2日", "王小明"},
		{"serial number", "房产证\n所有权人：欧阳小明\n编号：A001", "欧阳小明"},
		{"end of text", "房产证\n产权人：李四", "李四"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := ex.Extract(normalize.Normalize(tt.raw))

			got := entity.Candidates(fields, constants.FieldPersonName)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.want, got[0].Value)
			assert.Equal(t, 0.9, got[0].Confidence)
			for _, c := range got {
				assert.NotContains(t, c.Value, "性别")
				assert.NotContains(t, c.Value, "房号")
			}
		})
	}
}

func TestParse_LabelsPlaceholder(t *testing.T) {
	withPlaceholder := strings.Replace(minimalRules, `'编号:(\S+号)'`, `'编号:(\S+?号)(?:{{labels}}|$)'`, 1)
	require.NotEqual(t, minimalRules, withPlaceholder)

	_, err := Parse([]byte(withPlaceholder), "no-labels")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConfig))
	assert.Contains(t, err.Error(), "no labels are defined")

	doc := strings.Replace(withPlaceholder, "version: 1\n", "version: 1\nlabels: [产权人, 地址]\n", 1)
	rs, err := Parse([]byte(doc), "labels")
	require.NoError(t, err)
	require.Len(t, rs.Extract, 1)
	loc := rs.Extract[0].Patterns[0].Re.FindStringSubmatch("编号:粤(2020)穗房地证字第001号产权人:张三")
	require.NotNil(t, loc)
	assert.Equal(t, "粤(2020)穗房地证字第001号", loc[1])
}

func TestLabelAlternation(t *testing.T) {
	assert.Equal(t, "", labelAlternation(nil))
	assert.Equal(t, `(?:建筑面积|面积|a\.b)`, labelAlternation([]string{"面积", "建筑面积", "a.b"}))
}
