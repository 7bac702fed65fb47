package classify

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

func testConfig() Config {
	return Config{
		MinScore:  0.2,
		TieMargin: 0.05,
		Types: []TypeSignals{
			{Type: constants.Invoice, Signals: []Signal{
				{Keyword: "发票", Weight: 4},
				{Re: regexp.MustCompile(`税额|税率`), Weight: 2},
			}},
			{Type: constants.PropertyCertificate, Signals: []Signal{
				{Keyword: "房产证", Weight: 3},
				{Re: regexp.MustCompile(`产权人|权利人`), Weight: 2},
				{Field: constants.FieldCertificateNo, Weight: 3},
			}},
			{Type: constants.Contract, Signals: []Signal{
				{Keyword: "合同", Weight: 3},
				{Re: regexp.MustCompile(`买受人|出卖人`), Weight: 2},
			}},
			{Type: constants.SupplementaryAgreement, Signals: []Signal{
				{Keyword: "补充协议", Weight: 4},
				{Keyword: "原合同", Weight: 2},
			}},
		},
	}
}

func TestClassifyPropertyCertificate(t *testing.T) {
	c := NewClassifier(testConfig(), nil)
	fields := []entity.ExtractedField{{Name: constants.FieldCertificateNo, Value: "x", Confidence: 0.9}}

	got := c.Classify("房产证编号:粤(2020)穗房地证字第001号产权人:张三", fields)
	assert.Equal(t, constants.PropertyCertificate, got.Type)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)

	got = c.Classify("房产证编号:粤(2020)穗房地证字第001号产权人:张三", nil)
	assert.Equal(t, constants.PropertyCertificate, got.Type)
	assert.InDelta(t, 5.0/8.0, got.Confidence, 1e-9)
}

func TestClassifySupplementaryOverContract(t *testing.T) {
	got := NewClassifier(testConfig(), nil).Classify("补充协议 原合同 第一条", nil)
	assert.Equal(t, constants.SupplementaryAgreement, got.Type)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	assert.InDelta(t, 0.6, got.Scores[constants.Contract], 1e-9)
}

func TestClassifyBelowMinimum(t *testing.T) {
	got := NewClassifier(testConfig(), nil).Classify("税额", nil)
	assert.Equal(t, constants.Invoice, got.Type)
	assert.InDelta(t, 1.0/3.0, got.Confidence, 1e-9)

	cfg := testConfig()
	cfg.MinScore = 0.5
	got = NewClassifier(cfg, nil).Classify("税额", nil)
	assert.Equal(t, constants.Unknown, got.Type)
	assert.InDelta(t, 1.0/3.0, got.Confidence, 1e-9, "confidence carries the top score")
}

func TestClassifyTieIsUnknown(t *testing.T) {
	got := NewClassifier(testConfig(), nil).Classify("合同 买受人 发票 税额", nil)
	assert.Equal(t, constants.Unknown, got.Type)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)

	// 0.667 vs 0.6 is outside the margin
	got = NewClassifier(testConfig(), nil).Classify("合同 发票", nil)
	assert.Equal(t, constants.Invoice, got.Type)
}

func TestClassifyExactTieUsesPriority(t *testing.T) {
	cfg := testConfig()
	cfg.TieMargin = 0
	got := NewClassifier(cfg, nil).Classify("发票 税额 合同 买受人", nil)
	// Contract and Invoice both score 1.0; Contract outranks Invoice.
	assert.Equal(t, constants.Contract, got.Type)
}

func TestClassifyEmptyAndDeterministic(t *testing.T) {
	c := NewClassifier(testConfig(), nil)
	got := c.Classify("", nil)
	assert.Equal(t, constants.Unknown, got.Type)
	assert.Equal(t, 0.0, got.Confidence)

	text := "买卖合同 出卖人:王五 买受人:赵六 发票"
	first := c.Classify(text, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Classify(text, nil))
	}
}
