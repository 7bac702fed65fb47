package match

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/registry"
)

var certSpecs = []FieldSpec{
	{Column: constants.ColumnCertificateNo, Source: constants.FieldCertificateNo, Method: constants.MethodExact, Weight: 0.5},
	{Column: constants.ColumnOwnerName, Source: constants.FieldPersonName, Method: constants.MethodFuzzy, Weight: 0.3},
	{Column: constants.ColumnAddress, Source: constants.FieldAddress, Method: constants.MethodFuzzy, Weight: 0.2},
}

func testConfig(specs []FieldSpec) Config {
	return Config{
		MatchThreshold:  0.75,
		MarginThreshold: 0.05,
		RetryThreshold:  0.6,
		MaxCandidates:   3,
		FieldSets: map[constants.DocumentType][]FieldSpec{
			constants.PropertyCertificate: specs,
			constants.Unknown:             specs,
		},
	}
}

func testRegistry() *registry.Registry {
	return registry.New([]entity.PropertyRecord{
		{RecordID: "r-1", CertificateNo: "粤(2020)穗房地证字第001号", OwnerName: "张三", Address: "广州市天河区xx路1号"},
		{RecordID: "r-2", CertificateNo: "粤(2019)穗房地证字第777号", OwnerName: "李四", Address: "广州市越秀区yy路8号"},
	}, "test")
}

func field(name constants.FieldName, value string, conf float64) entity.ExtractedField {
	return entity.ExtractedField{Name: name, Value: value, Confidence: conf}
}

func TestSimilarity(t *testing.T) {
	v := registry.Prepare
	assert.Equal(t, 1.0, Similarity(constants.MethodExact, v("粤（2020）穗房地证字第001号"), v("粤(2020)穗房地证字第001号")))
	assert.Equal(t, 0.0, Similarity(constants.MethodExact, v("A1"), v("A2")))
	assert.InDelta(t, 0.5, Similarity(constants.MethodFuzzy, v("张彡"), v("张三")), 1e-9)
	assert.Equal(t, 0.0, Similarity(constants.MethodFuzzy, v(""), v("张三")))
	assert.Equal(t, 0.0, Similarity(constants.MethodFuzzy, v("张三"), v("")))

	reordered := Similarity(constants.MethodFuzzy, v("天河区 广州市 xx路1号"), v("广州市天河区xx路1号"))
	assert.Greater(t, reordered, 0.8)
}

func TestMatch_ScenarioB(t *testing.T) {
	m := NewMatcher(testConfig(certSpecs), nil)
	fields := []entity.ExtractedField{
		field(constants.FieldCertificateNo, "粤(2020)穗房地证字第001号", 0.95),
		field(constants.FieldPersonName, "张彡", 0.9),
		field(constants.FieldAddress, "广州市天河区xx路1号", 0.8),
	}

	res := m.Match(fields, constants.PropertyCertificate, testRegistry())

	require.Equal(t, constants.MatchStatusMatched, res.Status)
	require.NotNil(t, res.Record)
	assert.Equal(t, "r-1", res.Record.RecordID)
	assert.InDelta(t, 0.85, res.AggregateScore, 1e-9)
	assert.InDelta(t, 0.5, res.FieldScores[constants.ColumnOwnerName], 1e-9)
	assert.Equal(t, 1.0, res.FieldScores[constants.ColumnCertificateNo])
	assert.Equal(t, "张彡", res.UsedValues[constants.ColumnOwnerName])
	require.NotNil(t, res.RunnerUpScore)
	assert.Less(t, *res.RunnerUpScore, res.AggregateScore)
	assert.Equal(t, 1, res.Attempts)
}

func TestMatch_ScenarioC_Ambiguous(t *testing.T) {
	specs := []FieldSpec{
		{Column: constants.ColumnOwnerName, Source: constants.FieldPersonName, Method: constants.MethodFuzzy, Weight: 1},
	}
	cfg := testConfig(specs)
	cfg.MatchThreshold = 0.6
	m := NewMatcher(cfg, nil)
	reg := registry.New([]entity.PropertyRecord{
		{RecordID: "a", OwnerName: "张三丰"},
		{RecordID: "b", OwnerName: "张三风"},
	}, "test")

	res := m.Match([]entity.ExtractedField{field(constants.FieldPersonName, "张三", 0.9)}, constants.PropertyCertificate, reg)

	assert.Equal(t, constants.MatchStatusAmbiguous, res.Status)
	require.NotNil(t, res.Record)
	assert.Equal(t, "a", res.Record.RecordID, "ties keep registry order")
	require.NotNil(t, res.RunnerUpScore)
	assert.InDelta(t, res.AggregateScore, *res.RunnerUpScore, 1e-9)
}

func TestMatch_MarginBelowThreshold(t *testing.T) {
	specs := []FieldSpec{
		{Column: constants.ColumnCertificateNo, Source: constants.FieldCertificateNo, Method: constants.MethodExact, Weight: 0.77},
		{Column: constants.ColumnOwnerName, Source: constants.FieldPersonName, Method: constants.MethodExact, Weight: 0.01},
		{Column: constants.ColumnAddress, Source: constants.FieldAddress, Method: constants.MethodExact, Weight: 0.22},
	}
	reg := registry.New([]entity.PropertyRecord{
		{RecordID: "near", CertificateNo: "粤(2020)穗房地证字第001号", OwnerName: "张三", Address: "广州市天河区xx路1号"},
		{RecordID: "far", CertificateNo: "粤(2020)穗房地证字第001号", OwnerName: "李四", Address: "广州市天河区xx路2号"},
	}, "test")
	fields := []entity.ExtractedField{
		field(constants.FieldCertificateNo, "粤(2020)穗房地证字第001号", 0.95),
		field(constants.FieldPersonName, "张三", 0.9),
		field(constants.FieldAddress, "深圳市南山区zz路3号", 0.8),
	}

	tests := []struct {
		name   string
		margin float64
		want   constants.MatchStatus
	}{
		{"gap under margin", 0.05, constants.MatchStatusAmbiguous},
		{"gap over margin", 0.005, constants.MatchStatusMatched},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(specs)
			cfg.MarginThreshold = tt.margin
			res := NewMatcher(cfg, nil).Match(fields, constants.PropertyCertificate, reg)

			assert.Equal(t, tt.want, res.Status)
			require.NotNil(t, res.Record)
			assert.Equal(t, "near", res.Record.RecordID)
			assert.InDelta(t, 0.78, res.AggregateScore, 1e-9)
			require.NotNil(t, res.RunnerUpScore)
			assert.InDelta(t, 0.77, *res.RunnerUpScore, 1e-9)
		})
	}
}

func TestMatch_ThresholdIsInclusiveAndExact(t *testing.T) {
	specs := []FieldSpec{
		{Column: constants.ColumnCertificateNo, Source: constants.FieldCertificateNo, Method: constants.MethodExact, Weight: 0.75},
		{Column: constants.ColumnOwnerName, Source: constants.FieldPersonName, Method: constants.MethodExact, Weight: 0.25},
	}
	reg := registry.New([]entity.PropertyRecord{
		{RecordID: "only", CertificateNo: "粤(2020)穗房地证字第001号", OwnerName: "李四"},
	}, "test")
	fields := []entity.ExtractedField{
		field(constants.FieldCertificateNo, "粤(2020)穗房地证字第001号", 0.95),
		field(constants.FieldPersonName, "张三", 0.9),
	}

	cfg := testConfig(specs)
	res := NewMatcher(cfg, nil).Match(fields, constants.PropertyCertificate, reg)
	assert.Equal(t, constants.MatchStatusMatched, res.Status)
	assert.Equal(t, 0.75, res.AggregateScore)
	assert.GreaterOrEqual(t, res.AggregateScore, cfg.MatchThreshold)

	cfg.MatchThreshold = 0.75 + 1e-10
	res = NewMatcher(cfg, nil).Match(fields, constants.PropertyCertificate, reg)
	assert.Equal(t, constants.MatchStatusUnmatched, res.Status)
	assert.Nil(t, res.Record)
}

func TestMatch_Unmatched(t *testing.T) {
	m := NewMatcher(testConfig(certSpecs), nil)
	fields := []entity.ExtractedField{
		field(constants.FieldCertificateNo, "京(2001)京房权证字第42号", 0.95),
		field(constants.FieldPersonName, "王五", 0.9),
	}

	res := m.Match(fields, constants.PropertyCertificate, testRegistry())

	assert.Equal(t, constants.MatchStatusUnmatched, res.Status)
	assert.Nil(t, res.Record)
	assert.Less(t, res.AggregateScore, 0.75)
}

func TestMatch_EmptyRegistry(t *testing.T) {
	m := NewMatcher(testConfig(certSpecs), nil)
	res := m.Match([]entity.ExtractedField{field(constants.FieldPersonName, "张三", 0.9)}, constants.PropertyCertificate, registry.New(nil, "empty"))

	assert.Equal(t, constants.MatchStatusUnmatched, res.Status)
	assert.Nil(t, res.Record)
	assert.Nil(t, res.RunnerUpScore)
}

func TestMatch_MissingFieldsExcluded(t *testing.T) {
	m := NewMatcher(testConfig(certSpecs), nil)
	res := m.Match([]entity.ExtractedField{field(constants.FieldCertificateNo, "粤(2020)穗房地证字第001号", 0.9)}, constants.PropertyCertificate, testRegistry())

	assert.Equal(t, constants.MatchStatusMatched, res.Status)
	assert.Equal(t, 1.0, res.AggregateScore)
	assert.NotContains(t, res.FieldScores, constants.ColumnOwnerName)
}

func TestMatch_RequiredFieldMissing(t *testing.T) {
	specs := append([]FieldSpec(nil), certSpecs...)
	specs[0].Required = true
	m := NewMatcher(testConfig(specs), nil)

	res := m.Match([]entity.ExtractedField{
		field(constants.FieldPersonName, "张三", 0.9),
		field(constants.FieldAddress, "广州市天河区xx路1号", 0.9),
	}, constants.PropertyCertificate, testRegistry())

	assert.Equal(t, constants.MatchStatusUnmatched, res.Status)
	assert.Equal(t, 0.0, res.AggregateScore)
}

func TestMatch_RetryUsesLowerRankedCandidate(t *testing.T) {
	specs := []FieldSpec{
		{Column: constants.ColumnCertificateNo, Source: constants.FieldCertificateNo, Method: constants.MethodExact, Weight: 1},
	}
	m := NewMatcher(testConfig(specs), nil)
	fields := []entity.ExtractedField{
		field(constants.FieldCertificateNo, "粤(2021)穗房地证字第999号", 0.9),
		field(constants.FieldCertificateNo, "粤(2019)穗房地证字第777号", 0.6),
	}

	res := m.Match(fields, constants.PropertyCertificate, testRegistry())

	assert.Equal(t, constants.MatchStatusMatched, res.Status)
	assert.Equal(t, "r-2", res.Record.RecordID)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "粤(2019)穗房地证字第777号", res.UsedValues[constants.ColumnCertificateNo])
}

func TestMatch_RetryRespectsMaxCandidates(t *testing.T) {
	specs := []FieldSpec{
		{Column: constants.ColumnCertificateNo, Source: constants.FieldCertificateNo, Method: constants.MethodExact, Weight: 1},
	}
	cfg := testConfig(specs)
	cfg.MaxCandidates = 1
	m := NewMatcher(cfg, nil)
	fields := []entity.ExtractedField{
		field(constants.FieldCertificateNo, "粤(2021)穗房地证字第999号", 0.9),
		field(constants.FieldCertificateNo, "粤(2019)穗房地证字第777号", 0.6),
	}

	res := m.Match(fields, constants.PropertyCertificate, testRegistry())

	assert.Equal(t, constants.MatchStatusUnmatched, res.Status)
	assert.Equal(t, 1, res.Attempts)
}

func TestMatch_FallsBackToUnknownFieldSet(t *testing.T) {
	m := NewMatcher(testConfig(certSpecs), nil)
	assert.Len(t, m.FieldSet(constants.Invoice), len(certSpecs))
}

func TestAggregate_Monotone(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		scores := make([]float64, len(certSpecs))
		present := make([]bool, len(certSpecs))
		for j := range scores {
			scores[j] = rng.Float64()
			present[j] = rng.Intn(4) > 0
		}
		before := Aggregate(certSpecs, scores, present)
		j := rng.Intn(len(scores))
		scores[j] += (1 - scores[j]) * rng.Float64()
		after := Aggregate(certSpecs, scores, present)
		assert.GreaterOrEqual(t, after+1e-12, before)
		assert.GreaterOrEqual(t, after, 0.0)
		assert.LessOrEqual(t, after, 1.0+1e-12)
	}
}

func TestRank(t *testing.T) {
	m := NewMatcher(testConfig(certSpecs), nil)
	fields := []entity.ExtractedField{
		field(constants.FieldCertificateNo, "粤(2020)穗房地证字第001号", 0.95),
		field(constants.FieldPersonName, "张三", 0.9),
	}

	ranked := m.Rank(fields, constants.PropertyCertificate, testRegistry(), 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "r-1", ranked[0].Record.RecordID)
	assert.InDelta(t, 1.0, ranked[0].AggregateScore, 1e-9)
	assert.GreaterOrEqual(t, ranked[0].AggregateScore, ranked[1].AggregateScore)
	assert.NotContains(t, ranked[0].FieldScores, constants.ColumnAddress)

	assert.Len(t, m.Rank(fields, constants.PropertyCertificate, testRegistry(), 1), 1)
	assert.Nil(t, m.Rank(fields, constants.PropertyCertificate, registry.New(nil, "empty"), 3))
}
