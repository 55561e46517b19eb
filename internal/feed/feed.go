// Package feed carries "the order queue changed" signals from writers to
// fulfillment stations. Signals are hints: a receiver always re-reads the
// queue, so a lost or duplicated signal is harmless.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"counter-pos/internal/domain"
)

// KindTick marks a synthetic signal produced by polling.
const KindTick domain.EventKind = "feed.tick"

type Publisher interface {
	Publish(ctx context.Context, e domain.OrderEvent) error
}

// Subscription delivers signals until Close is called or the transport
// drops, after which Signals is closed.
type Subscription interface {
	Signals() <-chan domain.OrderEvent
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

type Nop struct{}

func (Nop) Publish(context.Context, domain.OrderEvent) error { return nil }

func Marshal(e domain.OrderEvent) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}
	return b, nil
}

func Unmarshal(b []byte) (domain.OrderEvent, error) {
	var e domain.OrderEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return domain.OrderEvent{}, fmt.Errorf("unmarshal order event: %w", err)
	}
	return e, nil
}
