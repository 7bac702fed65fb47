package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// unitMarkers close a token in Chinese addresses, so that
// "广州市天河区体育西路1号" splits into 广州市/天河区/体育西路/1号.
var unitMarkers = []string{
	"自治区", "单元",
	"省", "市", "区", "县", "镇", "乡", "村",
	"路", "街", "道", "巷", "弄", "号", "栋", "幢", "座", "楼", "室", "层",
}

// Tokens splits s into lower-cased tokens on whitespace, punctuation, symbols
// and address unit markers.
func Tokens(s string) []string {
	s = strings.ToLower(width.Fold.String(s))
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsControl(r) {
			flush()
			continue
		}
		cur.WriteRune(r)
		if endsWithMarker(cur.String()) {
			flush()
		}
	}
	flush()
	return toks
}

func endsWithMarker(s string) bool {
	for _, m := range unitMarkers {
		if strings.HasSuffix(s, m) {
			return true
		}
	}
	return false
}
