// Package events provides a small publish-subscribe bus carrying todo
// collection snapshots, used to feed SSE clients in serve mode.
package events

import (
	"sync"

	"github.com/idilsaglam/todolist/internal/model"
)

const subBufferSize = 8

// Bus is a non-blocking publish-subscribe bus. Subscribers that are slow
// to consume have snapshots dropped rather than blocking publishers.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan []model.Todo
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]chan []model.Todo)}
}

// Subscribe registers a subscriber under id and returns its channel.
// Call Unsubscribe with the same id when done.
func (b *Bus) Subscribe(id string) <-chan []model.Todo {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []model.Todo, subBufferSize)
	b.subs[id] = ch
	return ch
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

// Publish fans a snapshot out to every subscriber. Each subscriber gets
// its own copy; full channels are skipped.
func (b *Bus) Publish(todos []model.Todo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- model.Clone(todos):
		default:
			// Drop if subscriber is slow
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
