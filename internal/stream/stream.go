// Package stream fan-outs enrichment progress events to active SSE
// subscribers.
package stream

import (
	"context"
	"sync"

	"mediavault.org/internal/enrich"
)

// Stream distributes enrich.Event values to all subscribers. Slow
// subscribers drop events rather than stall the enrichment loop.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan enrich.Event
	next int
}

func New() *Stream {
	return &Stream{subs: make(map[int]chan enrich.Event)}
}

// Subscribe registers a subscriber and returns a channel which will
// receive events. The channel is closed when the context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan enrich.Event {
	ch := make(chan enrich.Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers without blocking.
func (s *Stream) Publish(evt enrich.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
