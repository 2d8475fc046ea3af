package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []Clause
	}{
		{
			name:  "single should",
			query: "java",
			want:  []Clause{{Occur: Should, Text: "java"}},
		},
		{
			name:  "mixed operators",
			query: "java -Arduino +tools",
			want: []Clause{
				{Occur: Should, Text: "java"},
				{Occur: MustNot, Text: "Arduino"},
				{Occur: Must, Text: "tools"},
			},
		},
		{
			name:  "NOT keyword",
			query: "java NOT arduino",
			want: []Clause{
				{Occur: Should, Text: "java"},
				{Occur: MustNot, Text: "arduino"},
			},
		},
		{
			name:  "extra whitespace",
			query: "  \tboundary \n layer  ",
			want: []Clause{
				{Occur: Should, Text: "boundary"},
				{Occur: Should, Text: "layer"},
			},
		},
		{
			name:  "only first prefix is an operator",
			query: "--x",
			want:  []Clause{{Occur: MustNot, Text: "-x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Parse(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Clauses)
			assert.Equal(t, tt.query, plan.RawQuery)
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	for _, query := range []string{"", "   ", "+", "java -", "java NOT", "NOT NOT java", "NOT +java"} {
		t.Run(query, func(t *testing.T) {
			_, err := Parse(query)
			assert.ErrorIs(t, err, apperrors.ErrSyntax)
		})
	}
}

func TestQueryPlan_String(t *testing.T) {
	a, err := Parse("java NOT arduino")
	require.NoError(t, err)
	b, err := Parse("java   -arduino")
	require.NoError(t, err)
	assert.Equal(t, "java -arduino", a.String())
	assert.Equal(t, a.String(), b.String())
}

func TestQueryPlan_HasPositive(t *testing.T) {
	plan, err := Parse("-java -arduino")
	require.NoError(t, err)
	assert.False(t, plan.HasPositive())

	plan, err = Parse("-java +arduino")
	require.NoError(t, err)
	assert.True(t, plan.HasPositive())
}
