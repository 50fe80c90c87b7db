package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus(logging.NewNop())

	id1, ch1 := bus.Subscribe()
	id2, ch2 := bus.Subscribe()
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	bus.Publish(types.UIEvent{Type: types.UITabCreated, TabID: "tab_1"})

	ev1 := <-ch1
	ev2 := <-ch2
	assert.Equal(t, "tab_1", ev1.TabID)
	assert.Equal(t, "tab_1", ev2.TabID)
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus(logging.NewNop())

	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	// Nobody drains; publishes beyond the buffer are dropped, not
	// deadlocked.
	for i := 0; i < subscriberBuffer*2; i++ {
		bus.Publish(types.UIEvent{Type: types.UITabUpdated})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(logging.NewNop())

	id, ch := bus.Subscribe()
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Unsubscribe(id)
	assert.Equal(t, 0, bus.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe is harmless.
	bus.Unsubscribe(id)
}
