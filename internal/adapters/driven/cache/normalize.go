// Package cache provides the in-memory semantic caches: embeddings keyed by
// normalised question text, curated FAQ answers keyed by embedding
// similarity, and full generated answers keyed by embedding similarity plus
// corpus hash. All three reload fully at start and persist best-effort
// after mutation.
package cache

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText folds case and strips diacritics and punctuation, producing
// the exact-match key for the embedding cache.
func normalizeText(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if stripped, _, err := transform.String(deaccent, lowered); err == nil {
		lowered = stripped
	}

	var b strings.Builder
	b.Grow(len(lowered))
	lastSpace := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace && b.Len() > 0:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenSimilarity is the Jaccard similarity of the two texts' token sets.
func tokenSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(text) {
		set[tok] = true
	}
	return set
}

// lengthsComparable rejects pairs whose lengths differ by more than half of
// the longer text, a cheap filter before token comparison.
func lengthsComparable(a, b string) bool {
	la, lb := len(a), len(b)
	if la < lb {
		la, lb = lb, la
	}
	if la == 0 {
		return true
	}
	return float64(la-lb) <= 0.5*float64(la)
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// 0 when dimensions differ or either has zero norm.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
