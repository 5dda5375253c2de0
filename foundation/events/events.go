// Package events provides a fan-out of node events to any number of
// registered subscribers.
package events

import (
	"fmt"
	"sync"
)

// Sends never block. If a subscriber is slow to drain its channel, messages
// beyond this buffer are dropped for that subscriber.
const subscriberBuffer = 100

// Events maintains a set of subscriber channels keyed by a unique id so
// goroutines can register for and receive node events.
type Events struct {
	subscribers map[string]chan string
	mu          sync.RWMutex
}

// New constructs an Events value for registering and receiving events.
func New() *Events {
	return &Events{
		subscribers: make(map[string]chan string),
	}
}

// Shutdown closes and removes every channel provided by Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subscribers {
		delete(evt.subscribers, id)
		close(ch)
	}
}

// Acquire registers the specified unique id and returns a channel that can
// be used to receive events. Calling Acquire with an id that is already
// registered returns the existing channel.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.subscribers[id]; exists {
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	evt.subscribers[id] = ch

	return ch
}

// Release closes and removes the channel that was provided by the call
// to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subscribers[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subscribers, id)
	close(ch)

	return nil
}

// Send delivers the message to every registered channel. Send never blocks
// waiting on a receiver.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}
