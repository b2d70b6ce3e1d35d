// Package events provides the feed of chain events the node streams to its
// websocket subscribers.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// subscriberBuffer is the number of events a subscriber can fall behind
// before events are dropped for it.
const subscriberBuffer = 100

// Events fans out chain events to subscribers keyed by a unique id, usually
// the trace id of the websocket request.
type Events struct {
	mu      sync.RWMutex
	subs    map[string]chan string
	closed  bool
	dropped atomic.Uint64
}

// New constructs an empty event feed.
func New() *Events {
	return &Events{
		subs: make(map[string]chan string),
	}
}

// Shutdown closes every subscriber channel. Subscriptions requested after
// shutdown receive a closed channel so websocket handlers return right away.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	evt.closed = true
	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}

// Acquire subscribes the id to the feed. Acquiring an id twice returns the
// same channel.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if evt.closed {
		ch := make(chan string)
		close(ch)
		return ch
	}

	if ch, exists := evt.subs[id]; exists {
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	evt.subs[id] = ch
	return ch
}

// Release unsubscribes the id and closes its channel.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("subscriber %q does not exist", id)
	}

	delete(evt.subs, id)
	close(ch)
	return nil
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Dropped returns the number of events discarded because a subscriber's
// buffer was full.
func (evt *Events) Dropped() uint64 {
	return evt.dropped.Load()
}

// Send delivers the event to every subscriber without blocking. A subscriber
// that has fallen behind misses the event.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.subs {
		select {
		case ch <- s:
		default:
			evt.dropped.Add(1)
		}
	}
}
