package store

import "sync"

// hub fans snapshots out to subscribers. Each subscriber channel holds at most
// one value and a newer snapshot replaces an unread one.
type hub[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]chan T
}

func (h *hub[T]) subscribe(current T) (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]chan T)
	}
	id := h.next
	h.next++

	ch := make(chan T, 1)
	ch <- current
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// drop the stale value, then deliver
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
