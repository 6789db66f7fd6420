package bm25

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLen drops tokens shorter than this after normalisation.
const minTokenLen = 3

// deaccent removes combining marks after canonical decomposition.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stripDiacritics folds accented characters to their base form.
func stripDiacritics(s string) string {
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		return s
	}
	return out
}

// tokenizer normalises text into stemmed index terms: case-folded,
// diacritic-stripped, stop-words removed, minimum length enforced.
type tokenizer struct {
	language  string
	stopwords map[string]struct{}
}

// newTokenizer builds a tokenizer for the given snowball language.
func newTokenizer(language string) *tokenizer {
	stops := make(map[string]struct{}, len(spanishStopwords)+len(englishStopwords))
	for _, w := range spanishStopwords {
		stops[w] = struct{}{}
	}
	for _, w := range englishStopwords {
		stops[w] = struct{}{}
	}
	return &tokenizer{language: language, stopwords: stops}
}

// Tokenize splits text into stemmed terms, preserving order so positions
// can be recorded.
func (t *tokenizer) Tokenize(text string) []string {
	lowered := stripDiacritics(strings.ToLower(text))

	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minTokenLen {
			continue
		}
		if _, stop := t.stopwords[f]; stop {
			continue
		}
		terms = append(terms, t.stem(f))
	}
	return terms
}

// stem applies the snowball stemmer, falling back to the raw token when
// the stemmer rejects it.
func (t *tokenizer) stem(word string) string {
	stemmed, err := snowball.Stem(word, t.language, false)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// spanishStopwords are discarded before indexing. The list covers the
// high-frequency function words; anything below minTokenLen is dropped
// earlier anyway. Diacritics are already stripped when compared.
var spanishStopwords = []string{
	"ante", "bajo", "como", "con", "contra", "cual", "cuales", "cuando",
	"del", "desde", "donde", "durante", "ella", "ellas", "ellos", "entre",
	"era", "eran", "ese", "esa", "esos", "esas", "esta", "estas", "este",
	"estos", "esto", "fue", "fueron", "hacia", "hasta", "las", "les", "los",
	"mas", "mientras", "muy", "nos", "nosotros", "otra", "otras", "otro",
	"otros", "para", "pero", "por", "porque", "que", "quien", "quienes",
	"ser", "sin", "sobre", "son", "sus", "tambien", "tiene",
	"tienen", "todo", "toda", "todos", "todas", "una", "uno", "unas", "unos",
	"usted", "ustedes",
}

// englishStopwords mirror the Spanish list for mixed corpora.
var englishStopwords = []string{
	"about", "after", "all", "also", "and", "any", "are", "because", "been",
	"before", "but", "can", "could", "did", "does", "for", "from", "had",
	"has", "have", "her", "his", "how", "into", "its", "not", "one", "our",
	"out", "she", "should", "such", "than", "that", "the", "their", "them",
	"then", "there", "these", "they", "this", "those", "was", "were", "what",
	"when", "where", "which", "who", "why", "will", "with", "would", "you",
	"your",
}
