// Package tokenizer provides text tokenisation for the memory index.
// Text is normalised by dropping everything except word characters and CJK
// ideographs, then split into overlapping two-character bigrams. Chinese text
// has no whitespace word boundaries, so bigrams stand in for words without a
// dictionary.
package tokenizer

import (
	"strings"
	"unicode"
)

const (
	cjkFirst = '一'
	cjkLast  = '鿿'
)

// Normalize strips every rune that is neither a word character (letter,
// number or underscore) nor a CJK unified ideograph.
func Normalize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if isKept(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Tokenize returns the bigrams of the normalised text in order, duplicates
// retained. A normalised string shorter than two runes, including the empty
// string, is returned as a single token so every document has a length of at
// least one.
func Tokenize(text string) []string {
	runes := []rune(Normalize(text))
	if len(runes) < 2 {
		return []string{string(runes)}
	}
	tokens := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		tokens = append(tokens, string(runes[i:i+2]))
	}
	return tokens
}

// Frequencies counts each token produced by Tokenize and returns the counts
// together with the total token count.
func Frequencies(text string) (map[string]int, int) {
	tokens := Tokenize(text)
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts, len(tokens)
}

func isKept(r rune) bool {
	if r >= cjkFirst && r <= cjkLast {
		return true
	}
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
