package sinks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/JakeFAU/experience-hoarder/internal/progress"
)

// BroadcastSink relays events to live subscribers such as websocket clients.
// Delivery never blocks the sweep: a subscriber whose buffer is full misses
// the event and the drop is counted.
type BroadcastSink struct {
	mu      sync.Mutex
	subs    map[uint64]chan progress.Event
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
}

// NewBroadcastSink returns a BroadcastSink with no subscribers.
func NewBroadcastSink() *BroadcastSink {
	return &BroadcastSink{subs: make(map[uint64]chan progress.Event)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// func unsubscribes and may be called more than once. The channel is closed
// on unsubscribe or when the sink closes.
func (s *BroadcastSink) Subscribe(buffer int) (<-chan progress.Event, func()) {
	ch := make(chan progress.Event, max(buffer, 1))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Subscribers reports the number of live subscribers.
func (s *BroadcastSink) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (s *BroadcastSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Consume offers evt to every subscriber without waiting.
func (s *BroadcastSink) Consume(_ context.Context, evt progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

// Close closes every subscriber channel. Later subscribers get a closed channel.
func (s *BroadcastSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	return nil
}
