// Package parser turns a raw query string into a QueryPlan. Parsing is purely
// syntactic: clause text is analyzed later against the target field's
// tokenizer settings.
package parser

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
)

// Occur says how a clause constrains matching documents.
type Occur int

// Occurs are declared from weakest to strongest.
const (
	// Should clauses are optional and contribute to the score.
	Should Occur = iota
	// Must clauses have to match every returned document.
	Must
	// MustNot clauses exclude every document they match.
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "must"
	case MustNot:
		return "must_not"
	default:
		return "should"
	}
}

// Clause is one whitespace-separated query element with its prefix removed.
type Clause struct {
	Occur Occur
	Text  string
}

type QueryPlan struct {
	Clauses  []Clause
	RawQuery string
}

// Parse splits query on whitespace. A leading '+' marks a clause as Must, a
// leading '-' as MustNot; the word NOT applies MustNot to the next clause.
// An empty query, a bare prefix or a dangling NOT is a syntax error.
func Parse(query string) (*QueryPlan, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty query", apperrors.ErrSyntax)
	}
	plan := &QueryPlan{
		Clauses:  make([]Clause, 0, len(words)),
		RawQuery: query,
	}
	excludeNext := false
	for i, word := range words {
		if word == "NOT" {
			if excludeNext || i == len(words)-1 {
				return nil, fmt.Errorf("%w: NOT must be followed by a term", apperrors.ErrSyntax)
			}
			excludeNext = true
			continue
		}
		clause := Clause{Occur: Should, Text: word}
		switch word[0] {
		case '+':
			clause = Clause{Occur: Must, Text: word[1:]}
		case '-':
			clause = Clause{Occur: MustNot, Text: word[1:]}
		}
		if clause.Text == "" {
			return nil, fmt.Errorf("%w: operator %q without a term at position %d", apperrors.ErrSyntax, word, i)
		}
		if excludeNext {
			if clause.Occur == Must {
				return nil, fmt.Errorf("%w: NOT applied to required term %q", apperrors.ErrSyntax, word)
			}
			clause.Occur = MustNot
			excludeNext = false
		}
		plan.Clauses = append(plan.Clauses, clause)
	}
	return plan, nil
}

// String renders the plan with prefix operators only, so "NOT x" and "-x"
// render identically.
func (p *QueryPlan) String() string {
	var b strings.Builder
	for i, c := range p.Clauses {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Occur {
		case Must:
			b.WriteByte('+')
		case MustNot:
			b.WriteByte('-')
		}
		b.WriteString(c.Text)
	}
	return b.String()
}

// HasPositive reports whether the plan contains a Must or Should clause. A
// plan made only of exclusions matches nothing.
func (p *QueryPlan) HasPositive() bool {
	for _, c := range p.Clauses {
		if c.Occur != MustNot {
			return true
		}
	}
	return false
}
