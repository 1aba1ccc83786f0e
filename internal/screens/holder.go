// Package screens holds per-screen state machines. Each screen keeps its state
// in a Holder and publishes immutable snapshots to subscribers; the WebSocket
// layer forwards those snapshots to clients.
package screens

import "sync"

// Snapshot is a versioned copy of a screen's state. Version increases by one on every update.
type Snapshot[T any] struct {
	Version int `json:"version"`
	State   T   `json:"state"`
}

// Holder guards a state value and fans out snapshots. Subscribers get the
// latest snapshot only; a slow reader skips intermediate versions.
type Holder[T any] struct {
	mu      sync.Mutex
	state   T
	version int
	subs    map[int]chan Snapshot[T]
	nextID  int
	closed  bool
}

// NewHolder creates a Holder at version 0.
func NewHolder[T any](initial T) *Holder[T] {
	return &Holder[T]{
		state: initial,
		subs:  make(map[int]chan Snapshot[T]),
	}
}

// Snapshot returns the current state.
func (h *Holder[T]) Snapshot() Snapshot[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Snapshot[T]{Version: h.version, State: h.state}
}

// Update replaces the state with fn(state) and publishes the result.
// fn must not mutate slices or maps reachable from its argument.
func (h *Holder[T]) Update(fn func(T) T) Snapshot[T] {
	snap, _ := h.UpdateIf(func(s T) (T, bool) { return fn(s), true })
	return snap
}

// UpdateIf applies fn and publishes only when fn reports a change. The check
// and the write happen under one lock.
func (h *Holder[T]) UpdateIf(fn func(T) (T, bool)) (Snapshot[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next, ok := fn(h.state)
	if !ok {
		return Snapshot[T]{Version: h.version, State: h.state}, false
	}
	h.state = next
	h.version++
	snap := Snapshot[T]{Version: h.version, State: h.state}
	for _, ch := range h.subs {
		offer(ch, snap)
	}
	return snap, true
}

// Subscribe returns a channel that receives the current snapshot immediately
// and every later one. cancel closes the channel.
func (h *Holder[T]) Subscribe() (<-chan Snapshot[T], func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Snapshot[T], 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	ch <- Snapshot[T]{Version: h.version, State: h.state}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. Later updates still change the state.
func (h *Holder[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

// offer replaces any unread snapshot with snap. Caller holds the lock, so
// there is no other sender.
func offer[T any](ch chan Snapshot[T], snap Snapshot[T]) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}
