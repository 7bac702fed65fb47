package match

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/registry"
)

// Similarity scores two prepared values in [0,1]. Empty values score 0.
func Similarity(method constants.MatchMethod, a, b registry.Value) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	if a.Key == b.Key {
		return 1
	}
	if method == constants.MethodExact {
		return 0
	}
	return fuzzy(a, b)
}

// fuzzy blends edit-distance ratio on the compact keys with a token-set
// score, so both single-character OCR errors and reordered address parts
// keep a high score.
func fuzzy(a, b registry.Value) float64 {
	direct := ratio(a.Key, b.Key)

	ta, tb := tokenSet(a.Tokens), tokenSet(b.Tokens)
	if len(ta) == 0 || len(tb) == 0 {
		return direct
	}
	common := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			common++
		}
	}
	dice := 2 * float64(common) / float64(len(ta)+len(tb))
	sorted := ratio(sortedJoin(ta), sortedJoin(tb))

	return max(direct, 0.5*dice+0.5*sorted)
}

func ratio(a, b string) float64 {
	return levenshtein.Similarity(a, b, nil)
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func sortedJoin(set map[string]struct{}) string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, "")
}
