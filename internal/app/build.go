package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/resilience"
)

// BuildRequest describes one index build. Empty Dest and Adapter fall back
// to indexer.dataDir and indexer.adapter.
type BuildRequest struct {
	Source  string
	Dest    string
	Adapter string
}

type BuildResult struct {
	indexer.Stats
	Adapter string
	Source  string
}

// BuildIndex reads every document from the source through the named
// adapter and commits them as a new store at Dest. Any adapter error aborts
// the build before commit, leaving the previously published store in place.
func (a *App) BuildIndex(ctx context.Context, req BuildRequest) (BuildResult, error) {
	if req.Source == "" {
		return BuildResult{}, fmt.Errorf("%w: source is required", apperrors.ErrInvalidInput)
	}
	name := req.Adapter
	if name == "" {
		name = a.cfg.Indexer.Adapter
	}
	dest := req.Dest
	if dest == "" {
		dest = a.cfg.Indexer.DataDir
	}
	location, err := filepath.Abs(dest)
	if err != nil {
		return BuildResult{}, fmt.Errorf("resolving %s: %w: %w", dest, apperrors.ErrIO, err)
	}

	adapter, err := collection.ForName(a.cfg.Collection, name)
	if err != nil {
		return BuildResult{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	opts := []indexer.Option{indexer.WithAdapter(adapter.Name())}
	if a.metrics != nil {
		opts = append(opts, indexer.WithMetrics(a.metrics))
	}
	builder, err := indexer.Begin(location, a.cfg.Tokenizer, opts...)
	if err != nil {
		return BuildResult{}, err
	}

	err = adapter.Each(ctx, req.Source, func(doc *document.Document) error {
		builder.AddDocument(doc)
		return nil
	})
	if err != nil {
		a.logger.Error("build aborted",
			"build_id", builder.BuildID(),
			"source", req.Source,
			"docs_read", builder.DocCount(),
			"error", err,
		)
		return BuildResult{}, fmt.Errorf("building index from %s: %w", req.Source, err)
	}

	stats, err := builder.Commit(ctx)
	if err != nil {
		return BuildResult{}, err
	}
	result := BuildResult{Stats: stats, Adapter: adapter.Name(), Source: req.Source}

	if a.recorder != nil {
		err := a.recorder.Record(ctx, catalog.Build{
			BuildID:   stats.BuildID,
			Location:  stats.Location,
			Adapter:   result.Adapter,
			Source:    req.Source,
			DocCount:  stats.DocCount,
			TermCount: stats.TermCount,
			CreatedAt: stats.CreatedAt,
		})
		if err != nil {
			return result, fmt.Errorf("store committed but not recorded in catalog: %w", err)
		}
	}
	if a.publisher != nil {
		ev := kafka.IndexCompleteEvent{
			BuildID:   stats.BuildID,
			Location:  stats.Location,
			Adapter:   result.Adapter,
			DocCount:  stats.DocCount,
			CreatedAt: stats.CreatedAt,
		}
		retry := resilience.RetryConfig{MaxAttempts: a.cfg.Kafka.PublishAttempts, InitialDelay: a.retryDelay}
		err := resilience.Retry(ctx, "publish index complete", retry, func(ctx context.Context) error {
			return kafka.PublishIndexComplete(ctx, a.publisher, ev)
		})
		if err != nil {
			a.logger.Warn("index complete notification failed", "build_id", stats.BuildID, "error", err)
		}
	}
	return result, nil
}
