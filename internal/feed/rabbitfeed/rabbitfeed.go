// Package rabbitfeed carries order change signals over a RabbitMQ fanout
// exchange. Every subscriber gets its own exclusive, auto-deleted queue.
package rabbitfeed

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"counter-pos/internal/common/logger"
	"counter-pos/internal/connections/rabbitmq"
	"counter-pos/internal/domain"
	"counter-pos/internal/feed"
)

type Feed struct {
	client   *rabbitmq.Client
	exchange string
	source   string
	log      *logger.Logger
}

// New declares the exchange. source is stamped into the x-source header.
func New(client *rabbitmq.Client, exchange, source string, lg *logger.Logger) (*Feed, error) {
	if err := client.DeclareFanout(exchange); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Feed{client: client, exchange: exchange, source: source, log: lg}, nil
}

func (f *Feed) Publish(ctx context.Context, e domain.OrderEvent) error {
	body, err := feed.Marshal(e)
	if err != nil {
		return err
	}
	headers := amqp.Table{"x-source": f.source, "x-kind": string(e.Kind)}
	if err := f.client.Publish(ctx, f.exchange, "", body, headers, "application/json", false); err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}
	return nil
}

func (f *Feed) Subscribe(ctx context.Context) (feed.Subscription, error) {
	ch, err := f.client.NewChannel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	// the broker may have restarted without the exchange
	if err := ch.ExchangeDeclare(f.exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", f.exchange, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", f.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume %s: %w", q.Name, err)
	}

	s := &subscription{ch: ch, out: make(chan domain.OrderEvent, 16), done: make(chan struct{})}
	go s.pump(ctx, deliveries, f.log)
	return s, nil
}

type subscription struct {
	ch   *amqp.Channel
	out  chan domain.OrderEvent
	done chan struct{}
	once sync.Once
}

func (s *subscription) Signals() <-chan domain.OrderEvent { return s.out }

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ch.Close()
	})
	return err
}

func (s *subscription) pump(ctx context.Context, deliveries <-chan amqp.Delivery, lg *logger.Logger) {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.done:
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			e, err := feed.Unmarshal(d.Body)
			if err != nil {
				// still a change signal; the receiver re-reads anyway
				lg.Warn("feed_bad_payload", map[string]any{"error": err.Error()})
				e = domain.OrderEvent{Kind: feed.KindTick, OccurredAt: d.Timestamp}
			}
			select {
			case s.out <- e:
			default:
			}
		}
	}
}
