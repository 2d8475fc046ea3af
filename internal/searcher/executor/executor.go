// Package executor evaluates parsed queries against the current index store
// and returns ranked hits with their stored fields.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/metrics"
)

// Hit is one ranked document.
type Hit struct {
	DocID  uint32              `json:"doc_id"`
	Score  float64             `json:"score"`
	Fields []index.StoredField `json:"fields,omitempty"`
}

type SearchResult struct {
	Query     string         `json:"query"`
	Field     string         `json:"field"`
	BuildID   string         `json:"build_id"`
	TotalHits int            `json:"total_hits"`
	Results   []Hit          `json:"results"`
	TermStats map[string]int `json:"term_stats"`
}

// ResultCache stores search results under an opaque key that already
// identifies the store build, field, query and k.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key string, compute func() (*SearchResult, error)) (*SearchResult, bool, error)
}

type Executor struct {
	holder  *Holder
	cfg     config.SearchConfig
	cache   ResultCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(holder *Holder, cfg config.SearchConfig, m *metrics.Metrics) *Executor {
	return &Executor{
		holder:  holder,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// WithCache makes the executor consult c before evaluating a query.
func (e *Executor) WithCache(c ResultCache) *Executor {
	e.cache = c
	return e
}

type queryTerm struct {
	term  string
	occur parser.Occur
}

// Search evaluates query against field and returns at most k hits ordered
// by descending score, ties broken by ascending document id. Zero matches
// is an empty result, not an error.
func (e *Executor) Search(ctx context.Context, field, query string, k int) (*SearchResult, error) {
	start := time.Now()
	cacheStatus := "none"
	result, err := func() (*SearchResult, error) {
		if k <= 0 {
			return nil, fmt.Errorf("%w: k must be positive, got %d", apperrors.ErrInvalidInput, k)
		}
		plan, err := parser.Parse(query)
		if err != nil {
			return nil, err
		}
		store, err := e.holder.Acquire()
		if err != nil {
			return nil, err
		}
		defer store.Release()
		if !store.Reader().HasField(field) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrFieldNotFound, field)
		}
		if e.cfg.QueryTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
			defer cancel()
		}
		if e.cache == nil {
			return e.execute(ctx, store, field, plan, k)
		}
		key := fmt.Sprintf("%s|%s|%d|%s", store.BuildID(), field, k, plan.String())
		res, hit, err := e.cache.GetOrCompute(ctx, key, func() (*SearchResult, error) {
			return e.execute(ctx, store, field, plan, k)
		})
		if hit {
			cacheStatus = "hit"
		} else {
			cacheStatus = "miss"
		}
		return res, err
	}()
	e.record(result, err, cacheStatus, time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) execute(ctx context.Context, store *Store, field string, plan *parser.QueryPlan, k int) (*SearchResult, error) {
	reader := store.Reader()
	info, _ := reader.FieldInfo(field)
	kind, _ := tokenizer.ParseKind(info.Kind)
	terms := analyze(store.Tokenizer(), plan, kind)

	result := &SearchResult{
		Query:     plan.RawQuery,
		Field:     field,
		BuildID:   store.BuildID(),
		Results:   []Hit{},
		TermStats: make(map[string]int, len(terms)),
	}
	if !plan.HasPositive() || len(terms) == 0 {
		return result, nil
	}

	postings, err := e.fetchPostings(ctx, store, field, terms)
	if err != nil {
		return nil, err
	}
	for i, t := range terms {
		result.TermStats[t.term] = len(postings[i])
	}

	scorer, err := ranker.NewScorer(e.cfg.Scorer, ranker.FieldStats{
		DocCount:  info.DocCount,
		AvgLength: info.AvgLength(),
	}, e.cfg.LengthNormalization)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	scores := score(terms, postings, scorer, func(docID uint32) int {
		return reader.FieldLength(field, docID)
	})
	ranked := ranker.TopK(scores, k)

	result.TotalHits = len(scores)
	for _, doc := range ranked {
		fields, err := reader.StoredFields(doc.DocID)
		if err != nil {
			return nil, fmt.Errorf("%w: loading stored fields of ranked document %d: %v", apperrors.ErrInternal, doc.DocID, err)
		}
		result.Results = append(result.Results, Hit{DocID: doc.DocID, Score: doc.Score, Fields: fields})
	}
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"field", field,
		"terms", len(terms),
		"candidates", result.TotalHits,
		"results", len(result.Results),
	)
	return result, nil
}

// analyze expands each clause into the terms the field's tokenizer produces
// for it. A clause may yield several terms, all sharing its occur. A term
// named by several clauses is kept once, with the strongest occur among them.
func analyze(tok *tokenizer.Tokenizer, plan *parser.QueryPlan, kind tokenizer.Kind) []queryTerm {
	seen := make(map[string]int)
	terms := make([]queryTerm, 0, len(plan.Clauses))
	for _, clause := range plan.Clauses {
		for _, term := range tok.Terms(clause.Text, kind) {
			if i, dup := seen[term]; dup {
				terms[i].occur = max(terms[i].occur, clause.Occur)
				continue
			}
			seen[term] = len(terms)
			terms = append(terms, queryTerm{term: term, occur: clause.Occur})
		}
	}
	return terms
}

func (e *Executor) fetchPostings(ctx context.Context, store *Store, field string, terms []queryTerm) ([]index.PostingList, error) {
	postings := make([]index.PostingList, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Workers > 0 {
		g.SetLimit(e.cfg.Workers)
	}
	for i, t := range terms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pl, err := store.Reader().Postings(field, t.term)
			if err != nil {
				return fmt.Errorf("reading postings for %s:%q: %w", field, t.term, err)
			}
			postings[i] = pl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return postings, nil
}

// score accumulates term scores per document in term order, so floating
// point sums are reproducible. Documents matched by a MustNot term, or
// missing any Must term, are dropped.
func score(terms []queryTerm, postings []index.PostingList, scorer ranker.Scorer, fieldLength func(uint32) int) map[uint32]float64 {
	numMust := 0
	for i, t := range terms {
		if t.occur == parser.Must {
			if len(postings[i]) == 0 {
				return map[uint32]float64{}
			}
			numMust++
		}
	}
	excluded := make(map[uint32]struct{})
	for i, t := range terms {
		if t.occur == parser.MustNot {
			for _, p := range postings[i] {
				excluded[p.DocID] = struct{}{}
			}
		}
	}
	scores := make(map[uint32]float64)
	mustHits := make(map[uint32]int)
	for i, t := range terms {
		if t.occur == parser.MustNot {
			continue
		}
		df := len(postings[i])
		for _, p := range postings[i] {
			if _, skip := excluded[p.DocID]; skip {
				continue
			}
			scores[p.DocID] += scorer.TermScore(p.Frequency, df, fieldLength(p.DocID))
			if t.occur == parser.Must {
				mustHits[p.DocID]++
			}
		}
	}
	if numMust > 0 {
		for docID := range scores {
			if mustHits[docID] < numMust {
				delete(scores, docID)
			}
		}
	}
	return scores
}

// Document returns the stored fields of a document in the current store.
func (e *Executor) Document(docID uint32) ([]index.StoredField, error) {
	store, err := e.holder.Acquire()
	if err != nil {
		return nil, err
	}
	defer store.Release()
	return store.Reader().StoredFields(docID)
}

// Fields lists the indexed fields of the current store.
func (e *Executor) Fields() ([]string, error) {
	store, err := e.holder.Acquire()
	if err != nil {
		return nil, err
	}
	defer store.Release()
	return store.Reader().Fields(), nil
}

func (e *Executor) record(result *SearchResult, err error, cacheStatus string, took time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(took.Seconds())
	switch {
	case err != nil:
		e.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
	case len(result.Results) == 0:
		e.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
		e.metrics.SearchResultsCount.Observe(0)
	default:
		e.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
		e.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	}
}
