package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
)

const (
	DefaultRunTag = "fieldsearch"
	queryIDField  = "qid"
	queryField    = "text"
)

// BatchRequest runs every query of a Cranfield-style query file (".I id"
// then ".W" text) against one field of a store and writes a TREC run.
type BatchRequest struct {
	Store   string
	Queries string
	Out     io.Writer
	// Field defaults to the last delimited field ("abstract").
	Field string
	K     int
	Tag   string
	// DocNoField names the stored field printed as docno. It defaults to
	// the first delimited field; documents without it print their id.
	DocNoField string
}

type BatchResult struct {
	Queries int
	Skipped int
	Lines   int
}

type batchQuery struct {
	id   string
	text string
}

type batchRun struct {
	hits    []executor.Hit
	skipped bool
}

// RunBatch evaluates the queries with bounded concurrency and writes the run
// lines "qid Q0 docno rank score tag" in query file order.
func (a *App) RunBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	req = a.batchDefaults(req)
	if req.Out == nil {
		return BatchResult{}, fmt.Errorf("%w: no output writer", apperrors.ErrInvalidInput)
	}
	queries, err := readQueries(ctx, req.Queries)
	if err != nil {
		return BatchResult{}, err
	}

	holder, err := executor.OpenHolder(req.Store, a.metrics)
	if err != nil {
		return BatchResult{}, fmt.Errorf("opening store: %w", err)
	}
	defer holder.Close()
	exec := executor.New(holder, a.cfg.Search, a.metrics)

	runs := make([]batchRun, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.cfg.Search.Workers, 1))
	for i, q := range queries {
		g.Go(func() error {
			res, err := exec.Search(gctx, req.Field, q.text, req.K)
			if errors.Is(err, apperrors.ErrSyntax) {
				a.logger.Warn("skipping unparsable query", "qid", q.id, "error", err)
				runs[i].skipped = true
				return nil
			}
			if err != nil {
				return fmt.Errorf("query %s: %w", q.id, err)
			}
			runs[i].hits = res.Results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Queries: len(queries)}
	w := bufio.NewWriter(req.Out)
	for i, q := range queries {
		if runs[i].skipped {
			result.Skipped++
			continue
		}
		for rank, hit := range runs[i].hits {
			_, err := fmt.Fprintf(w, "%s Q0 %s %d %s %s\n",
				q.id, docNo(hit, req.DocNoField), rank+1,
				strconv.FormatFloat(hit.Score, 'f', 6, 64), req.Tag)
			if err != nil {
				return result, fmt.Errorf("writing run: %w: %w", apperrors.ErrIO, err)
			}
			result.Lines++
		}
	}
	if err := w.Flush(); err != nil {
		return result, fmt.Errorf("writing run: %w: %w", apperrors.ErrIO, err)
	}
	a.logger.Info("batch complete",
		"queries", result.Queries,
		"skipped", result.Skipped,
		"lines", result.Lines,
	)
	return result, nil
}

func (a *App) batchDefaults(req BatchRequest) BatchRequest {
	fields := a.cfg.Collection.Delimited.Fields
	if req.Field == "" && len(fields) > 0 {
		req.Field = fields[len(fields)-1]
	}
	if req.DocNoField == "" && len(fields) > 0 {
		req.DocNoField = fields[0]
	}
	if req.K <= 0 {
		req.K = a.cfg.Search.DefaultLimit
	}
	if req.Tag == "" {
		req.Tag = DefaultRunTag
	}
	return req
}

// readQueries parses the query file with the delimited-record adapter. Query
// ids are printed without leading zeros when numeric.
func readQueries(ctx context.Context, path string) ([]batchQuery, error) {
	parser, err := collection.NewDelimited(config.DelimitedConfig{
		Delimiters: []string{".I", ".W"},
		Fields:     []string{queryIDField, queryField},
	})
	if err != nil {
		return nil, err
	}
	var queries []batchQuery
	err = parser.Each(ctx, path, func(doc *document.Document) error {
		id, _ := doc.Field(queryIDField)
		text, _ := doc.Field(queryField)
		qid := strings.TrimSpace(id.Text)
		if n, err := strconv.Atoi(qid); err == nil {
			qid = strconv.Itoa(n)
		}
		queries = append(queries, batchQuery{id: qid, text: text.Text})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}

func docNo(hit executor.Hit, field string) string {
	for _, f := range hit.Fields {
		if f.Name == field && f.Value != "" {
			return f.Value
		}
	}
	return strconv.FormatUint(uint64(hit.DocID), 10)
}
