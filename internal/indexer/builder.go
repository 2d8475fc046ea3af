// Package indexer builds index stores. A Builder accumulates documents in
// memory and publishes them as a single immutable store on Commit.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/metrics"
)

// Stats describes a committed build.
type Stats struct {
	BuildID   string
	Location  string
	DocCount  int
	TermCount int
	Fields    []string
	CreatedAt time.Time
	Duration  time.Duration
}

// Builder owns exclusive write access to one store location for the
// duration of a build. Every build is a full rebuild: Commit replaces
// whatever store the location held before. A Builder is not safe for
// concurrent use.
type Builder struct {
	location  string
	memIndex  *index.MemoryIndex
	writer    *segment.Writer
	tokCfg    config.TokenizerConfig
	buildID   string
	adapter   string
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	started   time.Time
	committed bool
}

type Option func(*Builder)

// WithMetrics records document and build counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithAdapter records the name of the collection adapter in the manifest.
func WithAdapter(name string) Option {
	return func(b *Builder) { b.adapter = name }
}

// WithBuildID overrides the generated build id.
func WithBuildID(id string) Option {
	return func(b *Builder) { b.buildID = id }
}

// WithClock overrides the time source used for the manifest timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// Begin starts a build targeting location. The directory is created if
// needed and temp files from interrupted builds are removed. The previous
// store, if any, stays readable until Commit publishes the new one.
func Begin(location string, cfg config.TokenizerConfig, opts ...Option) (*Builder, error) {
	b := &Builder{
		location: location,
		memIndex: index.NewMemoryIndex(tokenizer.New(cfg)),
		writer:   segment.NewWriter(location),
		tokCfg:   cfg,
		buildID:  uuid.NewString(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = slog.Default().With("component", "indexer", "build_id", b.buildID)
	if err := b.writer.Prepare(); err != nil {
		return nil, fmt.Errorf("beginning build at %s: %w", location, err)
	}
	b.started = b.now()
	b.logger.Info("build started", "location", location, "adapter", b.adapter)
	return b, nil
}

// AddDocument indexes doc in memory and returns its id. Ids are assigned
// sequentially from zero in call order.
func (b *Builder) AddDocument(doc *document.Document) uint32 {
	docID := b.memIndex.AddDocument(doc)
	if b.metrics != nil {
		b.metrics.DocsIndexedTotal.Inc()
	}
	b.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"fields", doc.Len(),
		"mem_size", b.memIndex.Size(),
	)
	return docID
}

// DocCount returns the number of documents added so far.
func (b *Builder) DocCount() int {
	return b.memIndex.DocCount()
}

// BuildID returns the id recorded in the store manifest.
func (b *Builder) BuildID() string {
	return b.buildID
}

// Commit serialises the accumulated index and atomically publishes it. A
// build with zero documents produces a valid empty store.
func (b *Builder) Commit(ctx context.Context) (Stats, error) {
	if b.committed {
		return Stats{}, fmt.Errorf("%w: build %s already committed", apperrors.ErrInvalidInput, b.buildID)
	}
	if err := ctx.Err(); err != nil {
		b.recordBuild("cancelled")
		return Stats{}, fmt.Errorf("committing build: %w", err)
	}
	start := time.Now()
	snapshot := b.memIndex.Snapshot()
	createdAt := b.now().UTC()
	manifest := segment.Manifest{
		BuildID:   b.buildID,
		CreatedAt: createdAt,
		Adapter:   b.adapter,
		Tokenizer: b.tokCfg,
	}
	if err := b.writer.Write(snapshot, manifest); err != nil {
		b.recordBuild("error")
		b.logger.Error("build commit failed", "location", b.location, "error", err)
		return Stats{}, fmt.Errorf("committing build %s: %w", b.buildID, err)
	}
	b.committed = true
	if b.metrics != nil {
		b.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	}
	b.recordBuild("success")

	fields := make([]string, 0, len(snapshot.Fields))
	for name := range snapshot.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	stats := Stats{
		BuildID:   b.buildID,
		Location:  b.location,
		DocCount:  snapshot.NumDocs,
		TermCount: len(snapshot.Entries),
		Fields:    fields,
		CreatedAt: createdAt,
		Duration:  b.now().Sub(b.started),
	}
	b.memIndex.Reset()
	b.logger.Info("build committed",
		"location", b.location,
		"docs", stats.DocCount,
		"terms", stats.TermCount,
		"fields", len(fields),
		"duration", stats.Duration,
	)
	return stats, nil
}

func (b *Builder) recordBuild(status string) {
	if b.metrics != nil {
		b.metrics.BuildsTotal.WithLabelValues(status).Inc()
	}
}
