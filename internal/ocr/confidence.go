package ocr

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

var (
	reDate   = regexp.MustCompile(`\d{4}\s*[年\-/.]\s*\d{1,2}`)
	reLabels = regexp.MustCompile(`证|号|地址|坐落|合同|发票|面积|产权`)
)

// heuristicConfidence scores OCR output by how much it looks like a
// property document: mostly Han text, form labels, dates and enough content.
func heuristicConfidence(txt string) float64 {
	total, han := 0, 0
	for _, r := range txt {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	if total == 0 {
		return 0
	}

	score := 0.2
	if float64(han)/float64(total) > 0.3 {
		score += 0.2
	}
	if reLabels.MatchString(txt) {
		score += 0.2
	}
	if reDate.MatchString(txt) {
		score += 0.15
	}
	if utf8.RuneCountInString(txt) > 120 {
		score += 0.1
	}
	return min(score, 1)
}
