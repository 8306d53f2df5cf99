package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(4)
	defer unsubscribe()

	bus.Publish(Event{Type: EventImageAdded, Image: &models.Image{ID: "img-1"}})

	select {
	case ev := <-ch:
		assert.Equal(t, EventImageAdded, ev.Type)
		assert.Equal(t, "img-1", ev.Image.ID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(1)
	defer unsubscribe()

	// The second publish must not block even though nobody is draining.
	bus.Publish(Event{Type: EventImageAdded})
	bus.Publish(Event{Type: EventImageUpdated})

	ev := <-ch
	assert.Equal(t, EventImageAdded, ev.Type)

	select {
	case <-ch:
		t.Fatal("overflow event should have been dropped")
	default:
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(1)
	unsubscribe()

	// The channel is closed and no longer receives publishes.
	bus.Publish(Event{Type: EventImageDeleted})

	ev, ok := <-ch
	require.False(t, ok)
	assert.Zero(t, ev)

	// Unsubscribing twice is harmless.
	unsubscribe()
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	first, stopFirst := bus.Subscribe(1)
	second, stopSecond := bus.Subscribe(1)
	defer stopFirst()
	defer stopSecond()

	bus.Publish(Event{Type: EventImageAdded})

	assert.Equal(t, EventImageAdded, (<-first).Type)
	assert.Equal(t, EventImageAdded, (<-second).Type)
}
