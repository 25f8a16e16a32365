// matcher.go: the context-compatibility gate for cascade propagation
package consensus

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeTokens lowercases, NFKC-normalizes and tokenizes OCR context so
// per-page scan variation (ligatures, curly quotes, stray punctuation) does
// not defeat matching.
func normalizeTokens(text string) []string {
	normalized := norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Fields(b.String())
}

// contextSimilarity computes the Jaccard similarity of the normalized token
// sets of two OCR context windows. Returns 0 when either side yields no
// tokens: with no context there is no basis to claim compatibility.
func contextSimilarity(a, b string) float64 {
	tokensA := normalizeTokens(a)
	tokensB := normalizeTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, t := range tokensB {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// contextCompatible applies the similarity gate. OCR context varies slightly
// per page, so this is a threshold rather than exact token equality.
func contextCompatible(a, b string, threshold float64) bool {
	return contextSimilarity(a, b) >= threshold
}
