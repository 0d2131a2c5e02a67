// Package eventbus is a typed, in-process publish/subscribe primitive game
// sessions, the matchmaking queue and the tournament overlay publish their
// results onto. It has no opinion about transport: something outside this
// package (a websocket handler, a test, a CLI) subscribes and decides how to
// forward an Event onward. This generalizes the single-purpose,
// signal-only Broadcaster the engine-tournament runner used to drive its
// SSE endpoint into something that can carry a typed payload.
package eventbus

import "sync"

// Event is one published occurrence. Kind is a stable, dot-namespaced
// string ("game.move.applied", "game.ended", "queue.matched",
// "tournament.matched");
// Payload is whatever the publisher decided to attach - callers type-assert
// it themselves, the bus makes no claim about its shape.
type Event struct {
	Kind    string
	Payload any
}

// Bus fans a published Event out to every current subscriber. A slow or
// absent subscriber never blocks a publisher: delivery is best-effort via a
// buffered channel, same non-blocking-send discipline the original
// Broadcaster used.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func New() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new listener and returns its id, its event channel,
// and an unsubscribe func that must be called exactly once when done.
func (b *Bus) Subscribe() (id int, ch <-chan Event, unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.next
	b.next++

	c := make(chan Event, 16)
	b.subs[id] = c

	return id, c, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c2, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c2)
		}
	}
}

// Publish fans ev out to every current subscriber, dropping it for any
// subscriber whose channel is full rather than blocking the publisher.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many listeners are currently attached -
// useful for tests and for a janitor deciding whether publishing is even
// worthwhile.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
