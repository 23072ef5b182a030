package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/domain/events"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	t.Run("delivers to every subscriber of the kind", func(t *testing.T) {
		bus := NewMemoryBus(zap.NewNop())
		var first, second []events.Event

		bus.Subscribe(events.KindSourcesChanged, func(e events.Event) { first = append(first, e) })
		bus.Subscribe(events.KindSourcesChanged, func(e events.Event) { second = append(second, e) })

		bus.Publish(context.Background(), events.NewSourcesChanged("p1", []research.SourceRecord{{ID: "s1", Title: "A"}}))

		require.Len(t, first, 1)
		require.Len(t, second, 1)
		assert.Equal(t, "p1", first[0].ProjectID())
	})

	t.Run("kinds are isolated channels", func(t *testing.T) {
		bus := NewMemoryBus(zap.NewNop())
		var got []events.Kind

		bus.Subscribe(events.KindOutlineChanged, func(e events.Event) { got = append(got, e.EventKind()) })

		bus.Publish(context.Background(), events.NewSourcesChanged("p1", nil))
		bus.Publish(context.Background(), events.NewOutlineChanged("p1", nil))

		assert.Equal(t, []events.Kind{events.KindOutlineChanged}, got)
	})

	t.Run("events carry their typed payload", func(t *testing.T) {
		bus := NewMemoryBus(zap.NewNop())
		var got events.ProjectSwitched

		bus.Subscribe(events.KindProjectSwitched, func(e events.Event) {
			got = e.(events.ProjectSwitched)
		})
		bus.Publish(context.Background(), events.NewProjectSwitched("a", "b"))

		assert.Equal(t, "a", got.PreviousID)
		assert.Equal(t, "b", got.CurrentID)
	})

	t.Run("publishing with no subscribers is harmless", func(t *testing.T) {
		bus := NewMemoryBus(zap.NewNop())
		bus.Publish(context.Background(), events.NewSaveFailed("p1", events.StoreSources, "boom"))
	})
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())
	var kept, dropped int

	bus.Subscribe(events.KindSourcesChanged, func(events.Event) { kept++ })
	unsubscribe := bus.Subscribe(events.KindSourcesChanged, func(events.Event) { dropped++ })

	bus.Publish(context.Background(), events.NewSourcesChanged("p1", nil))
	unsubscribe()
	bus.Publish(context.Background(), events.NewSourcesChanged("p1", nil))

	assert.Equal(t, 2, kept)
	assert.Equal(t, 1, dropped)

	// Unsubscribing twice is safe.
	unsubscribe()
}
