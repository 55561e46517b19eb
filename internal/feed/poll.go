package feed

import (
	"context"
	"sync"
	"time"

	"counter-pos/internal/domain"
)

// Poller emits a tick every interval. It stands in for a push transport
// when none is configured.
type Poller struct {
	Interval time.Duration
}

func NewPoller(interval time.Duration) *Poller {
	return &Poller{Interval: interval}
}

func (p *Poller) Subscribe(ctx context.Context) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &pollSub{ch: make(chan domain.OrderEvent, 1), cancel: cancel}

	go func() {
		defer close(s.ch)
		t := time.NewTicker(p.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case at := <-t.C:
				select {
				case s.ch <- domain.OrderEvent{Kind: KindTick, OccurredAt: at.UTC()}:
				default:
				}
			}
		}
	}()
	return s, nil
}

type pollSub struct {
	ch     chan domain.OrderEvent
	cancel context.CancelFunc
	once   sync.Once
}

func (s *pollSub) Signals() <-chan domain.OrderEvent { return s.ch }

func (s *pollSub) Close() error {
	s.once.Do(s.cancel)
	return nil
}
