package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"continuation break removed", "广州市天河区\n体育西路1号", "广州市天河区体育西路1号"},
		{"sentence end becomes space", "本合同一式两份。\n双方各执一份", "本合同一式两份。 双方各执一份"},
		{"list marker becomes space", "条款如下\n1. 付款方式", "条款如下 1. 付款方式"},
		{"chinese list marker", "约定\n一、房屋基本情况", "约定 一、房屋基本情况"},
		{"article heading", "双方约定\n第三条 价款", "双方约定 第三条 价款"},
		{"paragraph break", "甲方\n\n乙方", "甲方 乙方"},
		{"ascii words keep a space", "Room\n1203", "Room 1203"},
		{"full width folded", "编号：ＡＢ１２３（２０２０）", "编号:AB123(2020)"},
		{"ideographic space collapsed", "产权人　　张三", "产权人 张三"},
		{"control chars stripped", "张\u0000三​\u0007", "张三"},
		{"crlf", "房产证\r\n编号", "房产证编号"},
		{"noise line dropped", "房产证\n-----\n编号", "房产证编号"},
		{"whitespace collapsed", "  a \t  b  ", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeScenarioA(t *testing.T) {
	raw := "房产证\n编号：粤 (2020) 穗房地证字第001号\n产权人：张三\n地址：广州市天河区xx路1号"
	assert.Equal(t, "房产证编号:粤 (2020) 穗房地证字第001号产权人:张三地址:广州市天河区xx路1号", Normalize(raw))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"房产证\n编号：粤 (2020) 穗房地证字第001号\n产权人：张三",
		"条款如下\n1. 付款方式\n\n2. 交房时间。\n其他",
		"Ｈｅｌｌｏ　ｗｏｒｌｄ\r\n\t！",
		"-----\n___\n",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "粤(2020)穗房地证字第001号", Key("粤 （２０２０） 穗房地证字第001号"))
	assert.Equal(t, "44010619900101123X", Key("44010619900101123x"))
	assert.Equal(t, "", Key(" \t\n"))
}
