package events

import (
	"sync"

	"nftmarket/core/types"
)

// DefaultRecorderCapacity bounds the history kept by NewRecorder(0).
const DefaultRecorderCapacity = 1024

// Recorder keeps the most recent committed events in memory and fans them out
// to live subscribers. Slow subscribers miss events rather than block the
// emitter.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	history  []*types.Event
	subs     map[int]chan *types.Event
	nextSub  int
}

// NewRecorder creates a recorder retaining up to capacity events.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{
		capacity: capacity,
		history:  make([]*types.Event, 0, capacity),
		subs:     make(map[int]chan *types.Event),
	}
}

// Emit records ledger events. Events that do not carry a *types.Event payload
// are ignored.
func (r *Recorder) Emit(evt Event) {
	payload := payloadOf(evt)
	if payload == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == r.capacity {
		copy(r.history, r.history[1:])
		r.history = r.history[:len(r.history)-1]
	}
	r.history = append(r.history, payload)
	for _, ch := range r.subs {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Recent returns up to limit of the newest events, oldest first. A
// non-positive limit returns the whole history.
func (r *Recorder) Recent(limit int) []*types.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	start := 0
	if limit > 0 && limit < len(r.history) {
		start = len(r.history) - limit
	}
	out := make([]*types.Event, len(r.history)-start)
	copy(out, r.history[start:])
	return out
}

// Subscribe registers a live listener. The returned cancel function must be
// called to release it; it closes the channel.
func (r *Recorder) Subscribe(buffer int) (<-chan *types.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *types.Event, buffer)
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports the number of live listeners.
func (r *Recorder) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func payloadOf(evt Event) *types.Event {
	switch e := evt.(type) {
	case *types.Event:
		return e
	case interface{ Event() *types.Event }:
		return e.Event()
	default:
		return nil
	}
}
