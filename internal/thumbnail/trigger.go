// Package thumbnail requests derived renditions of newly stored images.
//
// The import publishes an Event on the EventGenerateThumbnails topic once per
// created asset. Subscribers run synchronously inside Publish, in
// registration order. Nothing is persisted or retried.
package thumbnail

import (
	"context"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/go-faster/errors"

	"github.com/xenking/feed-import/internal/domain/asset"
)

// EventGenerateThumbnails is the topic thumbnail requests are published on.
const EventGenerateThumbnails = "app.generate_thumbnails"

// Event carries a newly created asset.
type Event struct {
	Asset *asset.Asset
}

// Handler reacts to an Event.
type Handler func(ctx context.Context, ev Event)

// Trigger publishes thumbnail requests on an event bus.
type Trigger struct {
	bus EventBus.Bus
}

// NewTrigger creates a Trigger backed by bus. A nil bus gets a private one.
func NewTrigger(bus EventBus.Bus) *Trigger {
	if bus == nil {
		bus = EventBus.New()
	}
	return &Trigger{bus: bus}
}

// Subscribe registers h for every subsequent notification.
func (t *Trigger) Subscribe(h Handler) error {
	if err := t.bus.Subscribe(EventGenerateThumbnails, h); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	return nil
}

// NotifyUploaded fans a out to all subscribers and returns once they are done.
func (t *Trigger) NotifyUploaded(ctx context.Context, a *asset.Asset) {
	t.bus.Publish(EventGenerateThumbnails, ctx, Event{Asset: a})
}
