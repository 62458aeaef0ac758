package rag

import (
	"strings"
	"unicode"
)

// tokenize lowercases and splits on non-alphanumeric runes. Both indexing
// and query processing must use it so term statistics line up.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// termFrequencies counts tokens for BM25 indexing.
func termFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, tok := range tokenize(text) {
		freqs[tok]++
	}
	return freqs
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "of": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "with": true, "by": true, "and": true,
	"or": true, "not": true, "as": true, "it": true, "its": true, "this": true,
	"that": true, "these": true, "those": true, "what": true, "which": true,
	"who": true, "how": true, "when": true, "where": true, "can": true,
	"could": true, "shall": true, "should": true, "will": true, "would": true,
	"may": true, "might": true, "do": true, "does": true, "did": true,
	"has": true, "have": true, "had": true, "from": true, "under": true,
	"into": true, "about": true, "if": true, "my": true, "i": true, "you": true,
}

// contentWords filters stopwords out of the token stream. Claim support
// is judged on these, so "the" matching "the" never counts as overlap.
func contentWords(text string) []string {
	var words []string
	for _, tok := range tokenize(text) {
		if !stopwords[tok] {
			words = append(words, tok)
		}
	}
	return words
}

func contentWordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range contentWords(text) {
		set[w] = true
	}
	return set
}
