package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// tokenSplitPattern matches the separator runs between letter and digit
// sequences. Accented letters count as letters, so French words stay whole.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Fingerprint is a term-frequency vector over the tokens of a text, used to
// compare the vocabulary of two documents.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint builds the term-frequency vector for the provided text.
// Returns nil if the text yields no tokens.
func NewFingerprint(text string) *Fingerprint {
	counts := termFrequencies(Tokenize(text))
	if len(counts) == 0 {
		return nil
	}
	return &Fingerprint{tokens: counts, norm: vectorNorm(counts)}
}

func termFrequencies(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	return counts
}

func vectorNorm(counts map[string]float64) float64 {
	var sum float64
	for _, count := range counts {
		sum += count * count
	}
	return math.Sqrt(sum)
}

// Tokenize lowercases text and splits it into tokens of at least three runes.
func Tokenize(text string) []string {
	parts := tokenSplitPattern.Split(strings.ToLower(text), -1)
	terms := parts[:0]
	for _, token := range parts {
		if utf8.RuneCountInString(token) >= 3 {
			terms = append(terms, token)
		}
	}
	return terms
}

// TokenCount returns the number of unique tokens in the fingerprint.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// CosineSimilarity measures how much vocabulary two fingerprints share, from
// 0 (disjoint) to 1 (identical distribution). Nil or empty fingerprints
// compare as 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	shorter, longer := a, b
	if len(b.tokens) < len(a.tokens) {
		shorter, longer = b, a
	}
	var dot float64
	for token, count := range shorter.tokens {
		dot += count * longer.tokens[token]
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
