package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agripool/backend/internal/domain/shared"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) seen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "group_listing", uuid.New()),
	}
}

func TestInMemoryEventBusPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to matching handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := &recordingHandler{types: []string{"pooling.member_joined"}}
		bus.Subscribe(handler)

		err := bus.Publish(ctx, newTestEvent("pooling.member_joined"))
		require.NoError(t, err)
		assert.Equal(t, 1, handler.seen())
	})

	t.Run("skips non-matching handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := &recordingHandler{types: []string{"pooling.member_left"}}
		bus.Subscribe(handler)

		err := bus.Publish(ctx, newTestEvent("pooling.member_joined"))
		require.NoError(t, err)
		assert.Equal(t, 0, handler.seen())
	})

	t.Run("wildcard handler receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := &recordingHandler{}
		bus.Subscribe(handler)

		err := bus.Publish(ctx,
			newTestEvent("pooling.member_joined"),
			newTestEvent("order.status_changed"),
		)
		require.NoError(t, err)
		assert.Equal(t, 2, handler.seen())
	})

	t.Run("handler error does not stop delivery", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		failing := &recordingHandler{types: []string{"pooling.member_joined"}, err: errors.New("boom")}
		healthy := &recordingHandler{types: []string{"pooling.member_joined"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(ctx, newTestEvent("pooling.member_joined"))
		require.NoError(t, err)
		assert.Equal(t, 1, healthy.seen())
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		panicking := &recordingHandler{types: []string{"pooling.member_joined"}, panics: true}
		healthy := &recordingHandler{types: []string{"pooling.member_joined"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NotPanics(t, func() {
			_ = bus.Publish(ctx, newTestEvent("pooling.member_joined"))
		})
		assert.Equal(t, 1, healthy.seen())
	})

	t.Run("unsubscribed handler stops receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := &recordingHandler{types: []string{"pooling.member_joined"}}
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		err := bus.Publish(ctx, newTestEvent("pooling.member_joined"))
		require.NoError(t, err)
		assert.Equal(t, 0, handler.seen())
	})
}

func TestHandlerRegistry(t *testing.T) {
	t.Run("specific handlers come before wildcard", func(t *testing.T) {
		registry := NewHandlerRegistry()
		specific := &recordingHandler{}
		wildcard := &recordingHandler{}
		registry.Register(specific, "pooling.member_joined")
		registry.Register(wildcard)

		handlers := registry.GetHandlers("pooling.member_joined")
		require.Len(t, handlers, 2)
		assert.True(t, handlers[0] == shared.EventHandler(specific))
		assert.True(t, handlers[1] == shared.EventHandler(wildcard))
	})

	t.Run("empty for unknown type without wildcard", func(t *testing.T) {
		registry := NewHandlerRegistry()
		registry.Register(&recordingHandler{}, "pooling.member_joined")

		assert.Empty(t, registry.GetHandlers("order.status_changed"))
	})
}
