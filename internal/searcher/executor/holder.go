package executor

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/metrics"
)

// Store is an open index store together with the tokenizer it was built
// with. It is reference counted: callers obtain it from Holder.Acquire and
// must call Release when done.
type Store struct {
	reader    *segment.Reader
	tok       *tokenizer.Tokenizer
	location  string
	refs      atomic.Int64
	retired   atomic.Bool
	closeOnce sync.Once
}

func newStore(location string) (*Store, error) {
	r, err := segment.Open(location)
	if err != nil {
		return nil, err
	}
	return &Store{
		reader:   r,
		tok:      tokenizer.New(r.Manifest().Tokenizer),
		location: location,
	}, nil
}

func (s *Store) Reader() *segment.Reader { return s.reader }

func (s *Store) Tokenizer() *tokenizer.Tokenizer { return s.tok }

func (s *Store) Location() string { return s.location }

func (s *Store) BuildID() string { return s.reader.Manifest().BuildID }

// Release drops a reference taken by Acquire.
func (s *Store) Release() {
	if s.refs.Add(-1) == 0 && s.retired.Load() {
		s.close()
	}
}

func (s *Store) retire() {
	s.retired.Store(true)
	if s.refs.Load() == 0 {
		s.close()
	}
}

func (s *Store) close() {
	s.closeOnce.Do(func() {
		if err := s.reader.Close(); err != nil {
			slog.Default().With("component", "store-holder").Error("closing retired store",
				"location", s.location,
				"error", err,
			)
		}
	})
}

// Holder publishes the store that queries run against. Swap replaces it
// atomically; queries already running keep the store they acquired, which
// is closed once the last of them releases it.
type Holder struct {
	current atomic.Pointer[Store]
	mu      sync.Mutex
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHolder returns a Holder with no store. Acquire fails with ErrNotFound
// until Swap succeeds.
func NewHolder(m *metrics.Metrics) *Holder {
	return &Holder{
		metrics: m,
		logger:  slog.Default().With("component", "store-holder"),
	}
}

// OpenHolder returns a Holder serving the store at location.
func OpenHolder(location string, m *metrics.Metrics) (*Holder, error) {
	h := NewHolder(m)
	if err := h.Swap(location); err != nil {
		return nil, err
	}
	return h, nil
}

// Acquire returns the current store with its reference count raised.
func (h *Holder) Acquire() (*Store, error) {
	for {
		s := h.current.Load()
		if s == nil {
			return nil, fmt.Errorf("%w: no index store loaded", apperrors.ErrNotFound)
		}
		s.refs.Add(1)
		if h.current.Load() == s {
			return s, nil
		}
		s.Release()
	}
}

// Swap opens the store at location and makes it current. On failure the
// previous store stays in place.
func (h *Holder) Swap(location string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	next, err := newStore(location)
	if err != nil {
		h.recordSwap("error")
		h.logger.Error("store swap failed", "location", location, "error", err)
		return fmt.Errorf("swapping store to %s: %w", location, err)
	}
	prev := h.current.Swap(next)
	if prev != nil {
		prev.retire()
	}
	h.recordSwap("success")
	if h.metrics != nil {
		h.metrics.StoreDocCount.Set(float64(next.reader.NumDocs()))
	}
	h.logger.Info("store swapped",
		"location", location,
		"build_id", next.BuildID(),
		"docs", next.reader.NumDocs(),
		"terms", next.reader.Terms(),
	)
	return nil
}

// Current returns the build id of the current store, or "" when none is
// loaded.
func (h *Holder) Current() string {
	s, err := h.Acquire()
	if err != nil {
		return ""
	}
	defer s.Release()
	return s.BuildID()
}

// Close retires the current store. Later Acquire calls fail.
func (h *Holder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev := h.current.Swap(nil); prev != nil {
		prev.retire()
	}
	return nil
}

func (h *Holder) recordSwap(status string) {
	if h.metrics != nil {
		h.metrics.StoreSwapsTotal.WithLabelValues(status).Inc()
	}
}
