// Package reload keeps a query server on the newest store of its location.
// A swap is triggered either by an index-complete event from Kafka or by a
// filesystem watch on the store directory.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/kafka"
)

const DefaultDebounce = 200 * time.Millisecond

// Swapper is implemented by *executor.Holder.
type Swapper interface {
	Swap(location string) error
}

type Reloader struct {
	swapper  Swapper
	location string
	debounce time.Duration
	logger   *slog.Logger
}

// New returns a Reloader swapping s to the store at location. The location
// is made absolute so it compares equal to the one carried by events.
func New(s Swapper, location string) (*Reloader, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("resolving store location %s: %w", location, err)
	}
	return &Reloader{
		swapper:  s,
		location: abs,
		debounce: DefaultDebounce,
		logger:   slog.Default().With("component", "store-reload", "location", abs),
	}, nil
}

// WithDebounce sets how long the watcher waits for filesystem events to
// settle before swapping.
func (r *Reloader) WithDebounce(d time.Duration) *Reloader {
	r.debounce = d
	return r
}

// HandleMessage is a kafka.MessageHandler for index-complete events. Events
// for other locations are acknowledged and ignored. A failed swap is
// returned so the message stays uncommitted.
func (r *Reloader) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	ev, err := kafka.DecodeJSON[kafka.IndexCompleteEvent](value)
	if err != nil {
		return err
	}
	if filepath.Clean(ev.Location) != r.location {
		r.logger.Debug("ignoring build for another location", "event_location", ev.Location, "build_id", ev.BuildID)
		return nil
	}
	if err := r.swapper.Swap(r.location); err != nil {
		return fmt.Errorf("reloading build %s: %w", ev.BuildID, err)
	}
	r.logger.Info("store reloaded from notification", "build_id", ev.BuildID, "docs", ev.DocCount)
	return nil
}

// Watch starts watching the store directory and returns once the watch is
// in place. Each commit of a new store file triggers one swap after the
// debounce interval. The watch ends when ctx is cancelled.
func (r *Reloader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(r.location); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", r.location, err)
	}
	r.logger.Info("watching store directory")
	go r.loop(ctx, w)
	return nil
}

func (r *Reloader) loop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	storePath := segment.Path(r.location)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("store watch stopped")
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Name != storePath || !(event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(r.debounce, func() { r.swap(ctx) })
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Error("watch error", "error", err)
		}
	}
}

func (r *Reloader) swap(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := r.swapper.Swap(r.location); err != nil {
		r.logger.Error("store reload failed", "error", err)
		return
	}
	r.logger.Info("store reloaded from filesystem change")
}
