// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input, splits on non-alphanumeric boundaries, removes
// stop-words and optionally applies a stemmer. Keyword fields are split on
// whitespace only.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
)

// DefaultStopWords is the English stop set applied to text fields when the
// configuration does not provide one.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
	"if", "in", "into", "is", "it", "no", "not", "of", "on", "or",
	"such", "that", "the", "their", "then", "there", "these", "they",
	"this", "to", "was", "will", "with",
}

// Kind selects how a field's text is split.
type Kind uint8

const (
	// KindText splits on non-alphanumeric boundaries and drops stop words.
	KindText Kind = iota
	// KindKeyword splits on whitespace only and keeps every token.
	KindKeyword
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "text":
		return KindText, true
	case "keyword":
		return KindKeyword, true
	default:
		return KindText, false
	}
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenizer is immutable after construction and safe for concurrent use.
type Tokenizer struct {
	stopWords map[string]struct{}
	stem      func(string) string
	minLen    int
}

// New builds a Tokenizer from cfg. An empty stop-word list selects
// DefaultStopWords.
func New(cfg config.TokenizerConfig) *Tokenizer {
	words := cfg.StopWords
	if len(words) == 0 {
		words = DefaultStopWords
	}
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[strings.ToLower(w)] = struct{}{}
	}
	minLen := cfg.MinTokenLength
	if minLen < 1 {
		minLen = 1
	}
	return &Tokenizer{
		stopWords: stop,
		stem:      stemmerFor(cfg.Stemmer),
		minLen:    minLen,
	}
}

// Tokenize breaks text into lowercased Tokens. Positions are zero-based
// offsets over every split word, so dropped stop words still consume a
// position.
func (t *Tokenizer) Tokenize(text string, kind Kind) []Token {
	text = strings.ToLower(text)
	var words []string
	if kind == KindKeyword {
		words = strings.Fields(text)
	} else {
		words = strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	}
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		if kind == KindKeyword {
			tokens = append(tokens, Token{Term: word, Position: pos})
			continue
		}
		if len([]rune(word)) < t.minLen {
			continue
		}
		if _, isStop := t.stopWords[word]; isStop {
			continue
		}
		term := word
		if t.stem != nil {
			term = t.stem(word)
		}
		if term == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
		})
	}
	return tokens
}

// Terms returns only the terms of Tokenize, in order.
func (t *Tokenizer) Terms(text string, kind Kind) []string {
	tokens := t.Tokenize(text, kind)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}
