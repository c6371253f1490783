// Package similarity implements the lexical pre-filter used before asking
// the model whether two notes cover the same topic. It is a cheap Jaccard
// comparison over token sets, not a semantic measure.
package similarity

import (
	"strings"
	"unicode"
)

// Match is the best candidate found by FindMostSimilar.
type Match struct {
	Index int
	Score float64
}

// Tokenize lowercases s and splits it on any non-alphanumeric rune,
// returning the set of distinct tokens.
func Tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets score 0, not NaN.
func Jaccard(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		union = 1
	}
	return float64(inter) / float64(union)
}

// Similarity tokenizes both strings and returns their Jaccard score.
func Similarity(a, b string) float64 {
	return Jaccard(Tokenize(a), Tokenize(b))
}

// FindMostSimilar scores target against every candidate and returns the
// single highest-scoring one. ok is false when candidates is empty. Ties keep
// the earliest candidate.
func FindMostSimilar(target string, candidates []string) (Match, bool) {
	if len(candidates) == 0 {
		return Match{}, false
	}
	targetSet := Tokenize(target)
	best := Match{Index: 0, Score: Jaccard(targetSet, Tokenize(candidates[0]))}
	for i := 1; i < len(candidates); i++ {
		score := Jaccard(targetSet, Tokenize(candidates[i]))
		if score > best.Score {
			best = Match{Index: i, Score: score}
		}
	}
	return best, true
}
