package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/domain"
	"counter-pos/internal/feed"
)

// ErrFeedClosed is returned by Run when the transport dropped the
// subscription. The caller decides whether to resubscribe.
var ErrFeedClosed = errors.New("order feed closed")

// Queue is the slice of the order service a station needs.
type Queue interface {
	ListSent(ctx context.Context) ([]domain.Order, error)
	Complete(ctx context.Context, id uuid.UUID, by string) (domain.OrderHeader, error)
	ListCompleted(ctx context.Context, from, to time.Time) ([]domain.Order, error)
}

// Station keeps a view of the sent orders and re-reads it on every feed
// signal. Signal payloads are logged, never trusted.
type Station struct {
	name    string
	queue   Queue
	sub     feed.Subscriber
	log     *logger.Logger
	metrics *metrics.Pipeline

	reads atomic.Uint64 // sequence of ListSent calls

	mu       sync.RWMutex
	orders   []domain.Order
	loadedAt time.Time
	applied  uint64 // sequence of the read behind orders
	watchers map[chan []domain.Order]struct{}
}

func NewStation(name string, q Queue, sub feed.Subscriber, lg *logger.Logger, m *metrics.Pipeline) *Station {
	return &Station{
		name:     name,
		queue:    q,
		sub:      sub,
		log:      lg,
		metrics:  m,
		orders:   []domain.Order{},
		watchers: map[chan []domain.Order]struct{}{},
	}
}

func (s *Station) Name() string { return s.name }

// Refresh replaces the view with the authoritative sent set. A read that
// finishes after a later one has been applied is returned to its caller but
// does not replace the view.
func (s *Station) Refresh(ctx context.Context) ([]domain.Order, error) {
	seq := s.reads.Add(1)
	orders, err := s.queue.ListSent(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh sent orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		return orders, nil
	}
	s.orders = orders
	s.applied = seq
	s.loadedAt = time.Now().UTC()
	for w := range s.watchers {
		select {
		case w <- orders:
		default:
			// watcher still holds an older set; replace it
			select {
			case <-w:
			default:
			}
			select {
			case w <- orders:
			default:
			}
		}
	}
	s.mu.Unlock()

	s.metrics.SentOrders.Set(float64(len(orders)))
	return orders, nil
}

// Orders returns the last refreshed view, oldest first.
func (s *Station) Orders() ([]domain.Order, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders, s.loadedAt
}

// Run subscribes, loads the initial view and refreshes on every signal.
// Signals that pile up during a refresh are folded into one re-read. It
// returns nil when ctx ends and ErrFeedClosed when the feed drops.
func (s *Station) Run(ctx context.Context) error {
	sub, err := s.sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	if _, err := s.Refresh(ctx); err != nil {
		s.log.Error("station_refresh_failed", err, map[string]any{"station": s.name})
	}

	signals := sub.Signals()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-signals:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrFeedClosed
			}
			s.metrics.FeedSignals.Inc()
			s.log.Debug("station_signal", map[string]any{
				"station": s.name, "kind": string(e.Kind), "order_id": e.OrderID.String(),
			})
			drain(signals)
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("station_refresh_failed", err, map[string]any{"station": s.name})
			}
		}
	}
}

func drain(ch <-chan domain.OrderEvent) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Complete tries the sent -> completed transition. Losing the race to
// another station returns ErrConflictOnComplete after the view has been
// refreshed; by defaults to the station name.
func (s *Station) Complete(ctx context.Context, id uuid.UUID, by string) (domain.OrderHeader, error) {
	if by == "" {
		by = s.name
	}
	h, err := s.queue.Complete(ctx, id, by)
	if err != nil && !errors.Is(err, domain.ErrConflictOnComplete) {
		return domain.OrderHeader{}, err
	}
	if _, rerr := s.Refresh(ctx); rerr != nil {
		s.log.Error("station_refresh_failed", rerr, map[string]any{"station": s.name})
	}
	return h, err
}

// History lists orders completed in [from, to).
func (s *Station) History(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	return s.queue.ListCompleted(ctx, from, to)
}

// Watch delivers every refreshed view, starting with the current one. A
// slow watcher only ever sees the latest set. Call cancel when done.
func (s *Station) Watch() (<-chan []domain.Order, func()) {
	ch := make(chan []domain.Order, 1)
	s.mu.Lock()
	ch <- s.orders
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, ch)
			s.mu.Unlock()
		})
	}
}
