// Package tokenizer provides the lexical analysis shared by indexing and
// query parsing. It folds case and Unicode compatibility forms, splits on
// non-alphanumeric boundaries, removes stop-words and applies the Porter2
// stemmer.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {}, "there": {},
	"these": {}, "then": {}, "into": {}, "such": {},
}

// Token is a single normalised term and its position among the kept tokens
// of the input.
type Token struct {
	Term     string
	Position int
}

var folder = cases.Fold()

// Tokenize breaks text into stemmed, case-folded Tokens with stop-words
// removed.
func Tokenize(text string) []Token {
	text = folder.String(norm.NFKC.String(text))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		stemmed := porter2.Stem(word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{Term: stemmed, Position: pos})
		pos++
	}
	return tokens
}

// Terms returns just the terms of Tokenize, in order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Analyzer adapts Terms to the query parser.
type Analyzer struct{}

func (Analyzer) Analyze(text string) []string {
	return Terms(text)
}
