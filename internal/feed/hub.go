package feed

import (
	"context"
	"sync"

	"counter-pos/internal/domain"
)

// Hub fans signals out in-process. It is both Publisher and Subscriber.
// A subscriber that is not keeping up loses signals instead of blocking
// the publisher.
type Hub struct {
	mu       sync.Mutex
	subs     map[*hubSub]struct{}
	buffer   int
	watchers sync.WaitGroup
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: map[*hubSub]struct{}{}, buffer: buffer}
}

func (h *Hub) Publish(_ context.Context, e domain.OrderEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- e:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context) (Subscription, error) {
	s := &hubSub{hub: h, ch: make(chan domain.OrderEvent, h.buffer), done: make(chan struct{})}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	h.watchers.Add(1)
	go func() {
		defer h.watchers.Done()
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

type hubSub struct {
	hub  *Hub
	ch   chan domain.OrderEvent
	done chan struct{}
	once sync.Once
}

func (s *hubSub) Signals() <-chan domain.OrderEvent { return s.ch }

func (s *hubSub) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
		close(s.done)
	})
	return nil
}
