// Package bridge carries state-change notifications from the
// coordinator to the chrome UI, and UI commands back. Notifications
// are one-way pushes; commands always travel UI to coordinator, never
// the reverse.
package bridge

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/monitoring"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// subscriberBuffer is per-subscriber queue depth. A subscriber that
// falls this far behind loses events rather than stalling publishers.
const subscriberBuffer = 64

// Bus fans UI events out to subscribers. Publish never blocks.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]chan types.UIEvent
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewBus creates an event bus.
func NewBus(log *logging.Logger) *Bus {
	return &Bus{
		subs: make(map[string]chan types.UIEvent),
		log:  log.Named("bridge"),
	}
}

// WithMetrics adds metrics tracking to the bus.
func (b *Bus) WithMetrics(metrics *monitoring.Metrics) *Bus {
	b.metrics = metrics
	return b
}

// Publish delivers an event to every subscriber. Slow subscribers are
// skipped, not waited for.
func (b *Bus) Publish(ev types.UIEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.Warn("subscriber lagging, event dropped",
				zap.String("subscriber", id),
				zap.String("type", string(ev.Type)))
		}
	}
	if b.metrics != nil {
		b.metrics.EventsPushed.WithLabelValues(string(ev.Type)).Inc()
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
func (b *Bus) Subscribe() (string, <-chan types.UIEvent) {
	id := uuid.NewString()
	ch := make(chan types.UIEvent, subscriberBuffer)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// SubscriberCount reports how many subscribers are attached.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
