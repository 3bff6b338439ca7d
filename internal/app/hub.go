package app

import (
	"sync"
	"sync/atomic"

	"github.com/emmett/voxrec/internal/output"
)

// Hub fans telemetry events out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan output.Event
	dropped atomic.Uint64
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan output.Event)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func unregisters it and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(buffer int) (<-chan output.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan output.Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber with room for it
func (h *Hub) Publish(ev output.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of active subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for full subscribers
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
