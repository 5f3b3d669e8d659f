// Package eventbus provides a small in-process publish/subscribe channel.
//
// The portal uses it for exactly one thing today: broadcasting the logout
// notification when a session is torn down, so UI layers and long-lived
// callers can react without being wired into every API client.
package eventbus

import "sync"

// EventLogout is published whenever a session teardown completes.
// Subscribers receive no payload.
const EventLogout = "handleLogout"

// Handler is invoked when an event it subscribed to is published.
// Handlers run synchronously on the publisher's goroutine and must not block.
type Handler func()

type subscriber struct {
	id int
	fn Handler
}

// Bus is an explicit, constructed event channel. Components that need to
// broadcast or observe events hold a reference to the same Bus instance;
// there is no package-level singleton.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscriber
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers a handler for the given event and returns a function
// that removes the subscription. Handlers for the same event are invoked in
// subscription order.
func (b *Bus) Subscribe(event string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[event]
		for i, s := range subs {
			if s.id == id {
				b.subs[event] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to every current subscriber in subscription
// order. Delivery is fire-and-forget: Publish does not wait for subscribers
// to finish reacting beyond the handler call itself, and handlers must not
// block.
func (b *Bus) Publish(event string) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs[event]))
	copy(subs, b.subs[event])
	b.mu.Unlock()

	for _, s := range subs {
		s.fn()
	}
}
