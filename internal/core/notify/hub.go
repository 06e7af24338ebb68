// Package notify implements synchronous, ordered change notification.
package notify

import "sync"

// Subscription identifies a registered listener.
type Subscription struct {
	id uint64
}

type listener[E any] struct {
	id uint64
	fn func(E)
}

// Hub fans events out to listeners in registration order, on the
// publisher's goroutine. The zero value is ready to use.
type Hub[E any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[E]
}

func (h *Hub[E]) Subscribe(fn func(E)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.listeners = append(h.listeners, listener[E]{id: h.nextID, fn: fn})
	return Subscription{id: h.nextID}
}

// Unsubscribe returns false if the subscription was not registered.
func (h *Hub[E]) Unsubscribe(sub Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, l := range h.listeners {
		if l.id == sub.id {
			h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers events in order. Listeners registered or removed while
// a publish is running take effect from the next publish.
func (h *Hub[E]) Publish(events ...E) {
	if len(events) == 0 {
		return
	}

	h.mu.Lock()
	listeners := h.listeners
	h.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l.fn(ev)
		}
	}
}

func (h *Hub[E]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
