// Package events is a small in-process publish/subscribe bus.
//
// The dashboard subscribes to Visible to reload whenever it is shown, and
// to TransactionsChanged to reload after the stored list is written.
package events

import (
	"context"
	"sync"
)

// Event names a notification.
type Event string

const (
	// Visible fires when the dashboard becomes visible to a user.
	Visible Event = "dashboard.visible"
	// TransactionsChanged fires after the stored transactions were written.
	TransactionsChanged Event = "transactions.changed"
)

// Handler reacts to an event. It runs on the publisher's goroutine.
type Handler func(ctx context.Context, ev Event)

// Publisher is the sending half of a Bus.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches events to subscribed handlers.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Event][]subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]subscription)}
}

// Subscribe registers h for ev and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *Bus) Subscribe(ev Event, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[ev] = append(b.subs[ev], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(ev, id) })
	}
}

func (b *Bus) remove(ev Event, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[ev]
	for i, s := range subs {
		if s.id == id {
			// copy so that a Publish iterating the old slice is unaffected
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, ev)
			} else {
				b.subs[ev] = next
			}
			return
		}
	}
}

// Publish calls every handler subscribed to ev at the time of the call.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.Lock()
	subs := b.subs[ev]
	b.mu.Unlock()

	for _, s := range subs {
		s.handler(ctx, ev)
	}
}

// Subscribers returns the number of handlers registered for ev.
func (b *Bus) Subscribers(ev Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[ev])
}
