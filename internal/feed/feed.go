// Package feed fans finished exchanges out to live subscribers.
package feed

import (
	"context"
	"sync"

	"github.com/rbright/flmcp/internal/journal"
)

// DefaultBuffer is the per-subscriber backlog kept before entries drop.
const DefaultBuffer = 64

// Hub broadcasts exchanges. A subscriber that falls a full buffer behind
// misses entries rather than stalling the bridge.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// Subscription receives exchanges on C until Close or Hub.Close.
type Subscription struct {
	C <-chan journal.Entry

	c       chan journal.Entry
	hub     *Hub
	dropped int
}

// New returns a hub; buffer <= 0 uses DefaultBuffer.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

// Record publishes entry to every subscriber. It satisfies bridge.Recorder.
func (h *Hub) Record(_ context.Context, entry journal.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.c <- entry:
		default:
			sub.dropped++
		}
	}
	return nil
}

// Subscribe registers a new subscriber. On a closed hub the returned
// channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	c := make(chan journal.Entry, h.buffer)
	sub := &Subscription{C: c, c: c, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Subscribers reports how many subscriptions are open.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later Record calls are no-ops.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.c)
		delete(h.subs, sub)
	}
	return nil
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if _, ok := s.hub.subs[s]; !ok {
		return
	}
	delete(s.hub.subs, s)
	close(s.c)
}

// Dropped reports entries skipped because C was full.
func (s *Subscription) Dropped() int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.dropped
}
