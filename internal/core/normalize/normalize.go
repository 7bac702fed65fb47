// Package normalize cleans raw OCR text before extraction and classification.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

var (
	crlf       = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	reBoxNoise = regexp.MustCompile(`^[\s_\-=~]{3,}$`)
	// list and heading markers that start a new logical line
	reListMarker = regexp.MustCompile(`^(?:[•·●○■□◆◇▪\-*]|\d{1,3}[.、)]|[(][0-9一二三四五六七八九十]{1,3}[)]|[一二三四五六七八九十百]{1,3}、|第[0-9一二三四五六七八九十百]{1,4}[条章节款]|[①-⑳])`)
)

const sentenceEnders = "。.!?！？；;…"

// Normalize folds widths, strips control characters, merges broken lines and
// collapses whitespace. It is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := crlf.Replace(raw)
	s = width.Fold.String(s)
	s = stripControl(s)
	s = mergeLines(s)
	return strings.Join(strings.Fields(s), " ")
}

// Key reduces s to a comparison key: folded, upper-cased, no whitespace.
// Registry columns and extracted values are compared on keys.
func Key(s string) string {
	s = width.Fold.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r), r == utf8.RuneError:
			return -1
		}
		return r
	}, s)
}

func mergeLines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev string
	paragraph := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			paragraph = true
			continue
		}
		if reBoxNoise.MatchString(line) {
			continue
		}
		if prev != "" {
			if paragraph || endsSentence(prev) || reListMarker.MatchString(line) || gluesWords(prev, line) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(line)
		prev = line
		paragraph = false
	}
	return b.String()
}

func endsSentence(line string) bool {
	r, _ := utf8.DecodeLastRuneInString(line)
	return strings.ContainsRune(sentenceEnders, r)
}

// gluesWords reports whether joining would fuse two ASCII words.
func gluesWords(prev, next string) bool {
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	return isASCIIAlnum(last) && isASCIIAlnum(first)
}

func isASCIIAlnum(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
