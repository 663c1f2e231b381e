// Package broadcast fans ingestion events out to live subscribers, each
// watching its own bounding box.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-climate-risk/internal/models"
)

// subscriberBuffer holds roughly two default ingestion runs worth of events.
const subscriberBuffer = 100

type subscriber struct {
	ch  chan models.IngestEvent
	box models.BoundingBox
}

type Broadcaster struct {
	subscribers map[uint64]subscriber
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]subscriber),
	}
}

// Subscribe registers a subscriber for events whose location falls inside
// box. A zero box receives everything.
func (b *Broadcaster) Subscribe(box models.BoundingBox) (uint64, <-chan models.IngestEvent) {
	id := b.nextID.Add(1)
	ch := make(chan models.IngestEvent, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = subscriber{ch: ch, box: box}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast never blocks: subscribers with a full buffer miss the event and
// the miss is counted in Dropped.
func (b *Broadcaster) Broadcast(e models.IngestEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.box.Contains(e.Latitude, e.Longitude) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber fell behind.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so open streams end.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
