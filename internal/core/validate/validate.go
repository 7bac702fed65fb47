// Package validate holds the named value validators and transforms that
// extraction rules refer to from configuration.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Func reports whether an extracted value passes a sanity check.
type Func func(value string) bool

// Transform rewrites an extracted value into its canonical form.
type Transform func(value string) string

var validators = map[string]Func{
	"id_number":      IDNumber,
	"certificate_no": CertificateNo,
	"date":           Date,
	"chinese_name":   ChineseName,
	"area":           Area,
	"amount":         Amount,
}

var transforms = map[string]Transform{
	"compact":  Compact,
	"upper":    strings.ToUpper,
	"iso_date": ISODate,
}

// Lookup returns the validator registered under name.
func Lookup(name string) (Func, error) {
	fn, ok := validators[name]
	if !ok {
		return nil, fmt.Errorf("unknown validator %q", name)
	}
	return fn, nil
}

// LookupTransform returns the transform registered under name.
func LookupTransform(name string) (Transform, error) {
	fn, ok := transforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q", name)
	}
	return fn, nil
}

// Names lists registered validator names, sorted.
func Names() []string { return sortedKeys(validators) }

// TransformNames lists registered transform names, sorted.
func TransformNames() []string { return sortedKeys(transforms) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var (
	reID18    = regexp.MustCompile(`^[1-9]\d{5}(?:18|19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}[\dX]$`)
	reID15    = regexp.MustCompile(`^[1-9]\d{7}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}$`)
	reCert    = regexp.MustCompile(`^\p{Han}\(\d{4}\)\p{Han}{2,}第[0-9A-Z\-]+号$`)
	reName    = regexp.MustCompile(`^[\p{Han}·]{2,5}$`)
	reDateCN  = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(\d{1,2})日?$`)
	reDateSep = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	reAmount  = regexp.MustCompile(`^(\d+(?:\.\d+)?)(?:万元|元|万)?$`)
)

var (
	idWeights   = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}
	idCheckCode = "10X98765432"
)

// IDNumber validates an 18-digit resident ID (birth date and MOD 11-2 check
// digit) or a legacy 15-digit one.
func IDNumber(value string) bool {
	v := strings.ToUpper(Compact(value))
	switch len(v) {
	case 18:
		if !reID18.MatchString(v) || !validDate(v[6:10], v[10:12], v[12:14]) {
			return false
		}
		sum := 0
		for i, w := range idWeights {
			sum += int(v[i]-'0') * w
		}
		return idCheckCode[sum%11] == v[17]
	case 15:
		return reID15.MatchString(v) && validDate("19"+v[6:8], v[8:10], v[10:12])
	default:
		return false
	}
}

// CertificateNo checks the 省(年份)XX字第N号 shape of property certificate numbers.
func CertificateNo(value string) bool {
	return reCert.MatchString(Compact(value))
}

func ChineseName(value string) bool {
	return reName.MatchString(Compact(value))
}

// Date accepts 2020年1月2日, 2020-01-02, 2020/1/2 and 2020.1.2 when they name a real day.
func Date(value string) bool {
	_, ok := parseDate(value)
	return ok
}

// ISODate rewrites a parseable date as YYYY-MM-DD and leaves anything else unchanged.
func ISODate(value string) string {
	if t, ok := parseDate(value); ok {
		return t.Format("2006-01-02")
	}
	return value
}

func Area(value string) bool {
	f, err := strconv.ParseFloat(strings.ReplaceAll(Compact(value), ",", ""), 64)
	return err == nil && f > 0 && f < 100000
}

func Amount(value string) bool {
	m := reAmount.FindStringSubmatch(strings.ReplaceAll(Compact(value), ",", ""))
	if m == nil {
		return false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	return err == nil && f > 0
}

// Compact removes every whitespace rune.
func Compact(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
}

func parseDate(value string) (time.Time, bool) {
	v := Compact(value)
	m := reDateCN.FindStringSubmatch(v)
	if m == nil {
		m = reDateSep.FindStringSubmatch(v)
	}
	if m == nil {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if y < 1900 || y > 2100 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func validDate(y, m, d string) bool {
	_, ok := parseDate(y + "-" + m + "-" + d)
	return ok
}
