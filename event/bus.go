package event

import (
	"sync"
)

// Handler receives a published event.
type Handler func(Event)

type subscription struct {
	id uint64
	h  Handler
}

// Bus is a synchronous publish/subscribe dispatcher. Handlers run on the
// publishing goroutine, in subscription order, after any subscriber list
// changes made before Publish was called.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	byKind map[Kind][]subscription
	all    []subscription
}

func NewBus() *Bus {
	return &Bus{byKind: make(map[Kind][]subscription)}
}

// Subscribe registers h for events of kind k and returns a function that
// removes the subscription.
func (b *Bus) Subscribe(k Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byKind[k] = append(b.byKind[k], subscription{id: id, h: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byKind[k] = remove(b.byKind[k], id)
	}
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, h: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// Publish delivers e to the handlers registered for its kind, then to the
// catch-all handlers.
func (b *Bus) Publish(e Event) {
	if e == nil {
		return
	}

	b.mu.RLock()
	subs := make([]subscription, 0, len(b.byKind[e.Kind()])+len(b.all))
	subs = append(subs, b.byKind[e.Kind()]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.h(e)
	}
}

// On subscribes a handler typed to a single payload type.
func On[T Event](b *Bus, fn func(T)) func() {
	var zero T
	return b.Subscribe(zero.Kind(), func(e Event) {
		if typed, ok := e.(T); ok {
			fn(typed)
		}
	})
}

func remove(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
