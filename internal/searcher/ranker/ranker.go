// Package ranker scores matching documents and selects the top K. Scores
// are never rounded; ties are broken by ascending document id.
package ranker

import (
	"fmt"
	"math"
)

const (
	k1 = 1.2
	b  = 0.75
)

type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// FieldStats are the corpus statistics of the field being searched.
type FieldStats struct {
	DocCount  int
	AvgLength float64
}

// Scorer returns the contribution of one term to one document's score.
type Scorer interface {
	Name() string
	TermScore(tf, df, docLength int) float64
}

// NewScorer selects a scorer by name: "tfidf" (the default) or "bm25".
func NewScorer(name string, stats FieldStats, lengthNormalization bool) (Scorer, error) {
	switch name {
	case "", "tfidf":
		return TFIDF{Stats: stats, LengthNormalization: lengthNormalization}, nil
	case "bm25":
		return BM25{Stats: stats}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}

// TFIDF scores tf · ln(1 + N/df), scaled by avgLength/docLength when length
// normalization is on. Zero-length documents are not scaled.
type TFIDF struct {
	Stats               FieldStats
	LengthNormalization bool
}

func (TFIDF) Name() string { return "tfidf" }

func (s TFIDF) TermScore(tf, df, docLength int) float64 {
	if tf <= 0 || df <= 0 {
		return 0
	}
	score := float64(tf) * math.Log(1+float64(s.Stats.DocCount)/float64(df))
	if s.LengthNormalization && docLength > 0 && s.Stats.AvgLength > 0 {
		score *= s.Stats.AvgLength / float64(docLength)
	}
	return score
}

// BM25 is Okapi BM25 with k1 = 1.2 and b = 0.75.
type BM25 struct {
	Stats FieldStats
}

func (BM25) Name() string { return "bm25" }

func (s BM25) TermScore(tf, df, docLength int) float64 {
	if tf <= 0 || df <= 0 {
		return 0
	}
	idf := computeIDF(int64(s.Stats.DocCount), int64(df))
	return idf * computeTFNorm(float64(tf), float64(docLength), s.Stats.AvgLength)
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}

// Less reports whether a ranks before c: higher score first, then lower
// document id.
func Less(a, c ScoredDoc) bool {
	if a.Score != c.Score {
		return a.Score > c.Score
	}
	return a.DocID < c.DocID
}
