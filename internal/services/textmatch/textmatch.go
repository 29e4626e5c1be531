// Package textmatch grades free-text answers: case and accent folding,
// alias matching and a normalised edit-distance similarity.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Verdict is the result of grading a guess against a set of answers
type Verdict int

const (
	Miss Verdict = iota
	Close
	Exact
)

// Normalize folds case and accents, drops punctuation and collapses spaces.
// "Pokémon: Red & Blue!" becomes "pokemon red and blue".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.ReplaceAll(folded, "&", " and "))

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/' || r == ':':
			space = true
		}
	}
	return b.String()
}

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) on
// normalized input, in [0, 1]
func Similarity(a, b string) float64 {
	ra, rb := []rune(Normalize(a)), []rune(Normalize(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// Grade compares a guess with every accepted answer. Exact means the
// normalized forms are equal; Close means the best similarity reaches threshold.
func Grade(guess string, answers []string, threshold float64) Verdict {
	g := Normalize(guess)
	if g == "" {
		return Miss
	}
	best := 0.0
	for _, a := range answers {
		na := Normalize(a)
		if na == "" {
			continue
		}
		if na == g {
			return Exact
		}
		if sim := Similarity(g, na); sim > best {
			best = sim
		}
	}
	if best >= threshold {
		return Close
	}
	return Miss
}

// Mask hides all but the first letter of every word: "Super Mario" -> "S____ M____"
func Mask(answer string) string {
	var b strings.Builder
	start := true
	for _, r := range answer {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start {
				b.WriteRune(r)
			} else {
				b.WriteByte('_')
			}
			start = false
		default:
			b.WriteRune(r)
			start = unicode.IsSpace(r)
		}
	}
	return b.String()
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
