package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"counter-pos/internal/common/logger"
	"counter-pos/internal/domain"
	"counter-pos/internal/feed"
)

var ErrFeedClosed = errors.New("notification feed closed")

// OrderReader resolves the order a signal points at.
type OrderReader interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
}

// NotificatorService writes one log line per order change it hears about.
// The payload only says which order moved; the order itself is re-read.
type NotificatorService struct {
	sub    feed.Subscriber
	orders OrderReader
	log    *logger.Logger
}

func NewNotificatorService(sub feed.Subscriber, orders OrderReader, lg *logger.Logger) *NotificatorService {
	return &NotificatorService{sub: sub, orders: orders, log: lg}
}

func (ns *NotificatorService) Notify(ctx context.Context) error {
	s, err := ns.sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-s.Signals():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrFeedClosed
			}
			ns.handle(ctx, e)
		}
	}
}

func (ns *NotificatorService) handle(ctx context.Context, e domain.OrderEvent) {
	if e.OrderID == uuid.Nil {
		ns.log.Debug("notification_tick", map[string]any{"kind": string(e.Kind)})
		return
	}
	fields := map[string]any{"kind": string(e.Kind), "order_id": e.OrderID.String()}
	order, err := ns.orders.Get(ctx, e.OrderID)
	if err != nil {
		fields["error"] = err.Error()
		ns.log.Warn("notification_order_unreadable", fields)
		return
	}
	fields["customer_name"] = order.CustomerName
	fields["status"] = string(order.Status)
	fields["items"] = len(order.Lines)
	ns.log.Info("notification_received", fields)
}
