package kafka

import (
	"context"
	"time"
)

// IndexCompleteEvent is published after a build has been committed. Query
// servers consuming it swap to the store at Location.
type IndexCompleteEvent struct {
	BuildID   string    `json:"build_id"`
	Location  string    `json:"location"`
	Adapter   string    `json:"adapter"`
	DocCount  int       `json:"doc_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher is implemented by Producer.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublishIndexComplete publishes ev keyed by its store location, so events
// for one location stay ordered on a single partition.
func PublishIndexComplete(ctx context.Context, p Publisher, ev IndexCompleteEvent) error {
	return p.Publish(ctx, Event{Key: ev.Location, Value: ev})
}
