// Package app implements the driver operations shared by the command line
// tools: building an index from a collection, querying a store and running
// a batch of queries into a TREC run file.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/metrics"
)

// BuildRecorder stores a record of every committed build. It is implemented
// by *catalog.Catalog.
type BuildRecorder interface {
	Record(ctx context.Context, b catalog.Build) error
}

type App struct {
	cfg        *config.Config
	metrics    *metrics.Metrics
	recorder   BuildRecorder
	publisher  kafka.Publisher
	retryDelay time.Duration
	logger     *slog.Logger
}

type Option func(*App)

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithRecorder records every committed build through r.
func WithRecorder(r BuildRecorder) Option {
	return func(a *App) { a.recorder = r }
}

// WithPublisher announces every committed build through p. Failed
// publishes are retried kafka.publishAttempts times.
func WithPublisher(p kafka.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithRetryDelay sets the first backoff between publish attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(a *App) { a.retryDelay = d }
}

func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		logger: slog.Default().With("component", "app"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) Config() *config.Config {
	return a.cfg
}
