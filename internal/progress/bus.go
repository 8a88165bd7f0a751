package progress

import (
	"sync"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
)

// Bus fans progress events out to subscribers. Pipeline stages
// publish; the CLI and the websocket stream subscribe. Publishing
// never blocks: a slow subscriber drops events instead of stalling
// a collection run.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan contracts.ProgressEvent
	next int
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan contracts.ProgressEvent)}
}

// Subscribe registers a subscriber and returns its channel plus an
// unsubscribe function. The channel is buffered.
func (b *Bus) Subscribe() (<-chan contracts.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	ch := make(chan contracts.ProgressEvent, 64)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}

	return ch, unsubscribe
}

// Publish delivers an event to all subscribers, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(event contracts.ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
