package catalog

import (
	"sync"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// EventType identifies a catalog lifecycle event.
type EventType string

const (
	EventImageAdded   EventType = "image-added"
	EventImageUpdated EventType = "image-updated"
	EventImageDeleted EventType = "image-deleted"
)

// Event carries a lifecycle notification. Image is a snapshot taken at
// publish time; subscribers must not mutate it.
type Event struct {
	Type  EventType
	Image *models.Image
}

// Bus is a minimal in-process publish-subscribe fanout for catalog events.
//
// Delivery is best-effort: a subscriber that falls behind loses events
// rather than blocking catalog mutations. Consumers are UI refresh and
// host-runtime variable injection, neither of which needs a durable feed.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber and returns its channel along with an
// unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub == ch {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

// Publish delivers the event to all current subscribers without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub <- event:
		default:
		}
	}
}
