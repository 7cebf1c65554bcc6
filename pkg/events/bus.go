package events

import (
	"sync"
	"sync/atomic"

	"github.com/jscyril/tinyplayer/api"
)

// EventBus fans playback events out to buffered subscriber channels.
// Publishing never blocks: a full subscriber misses the event and the miss is
// counted.
type EventBus struct {
	subscribers []chan api.AudioEvent
	buffer      int
	closed      bool
	mu          sync.RWMutex
	dropped     atomic.Uint64
}

// NewEventBus creates a bus whose subscribers each buffer up to buffer events
func NewEventBus(buffer int) *EventBus {
	return &EventBus{buffer: buffer}
}

// Subscribe returns a channel receiving every event published from now on.
// The channel is closed by Close.
func (b *EventBus) Subscribe() <-chan api.AudioEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.AudioEvent, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish broadcasts an event to all subscribers
func (b *EventBus) Publish(event api.AudioEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped on full subscribers
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels. Later publishes are discarded.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
