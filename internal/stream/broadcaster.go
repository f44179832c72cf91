// Package stream fans hotspot snapshots out to live subscribers.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

// SubscriberBuffer is how many snapshots a subscriber may fall behind
// before further snapshots are dropped for it.
const SubscriberBuffer = 16

type Broadcaster struct {
	subscribers map[uint64]chan models.ClusterSnapshot
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.ClusterSnapshot),
	}
}

func (b *Broadcaster) Subscribe() (uint64, <-chan models.ClusterSnapshot) {
	id := b.nextID.Add(1)
	ch := make(chan models.ClusterSnapshot, SubscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast never blocks. A subscriber whose buffer is full misses snap.
func (b *Broadcaster) Broadcast(snap models.ClusterSnapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- snap:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels so that streams end cleanly.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
