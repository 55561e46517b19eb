// Package kafkafeed carries order change signals over a Kafka topic. Each
// subscription joins a consumer group of its own so every station sees
// every signal.
package kafkafeed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"counter-pos/internal/common/logger"
	kclient "counter-pos/internal/connections/kafka"
	"counter-pos/internal/domain"
	"counter-pos/internal/feed"
)

type Feed struct {
	client      *kclient.Client
	writer      *kafka.Writer
	groupPrefix string
	log         *logger.Logger
}

func New(client *kclient.Client, groupPrefix string, lg *logger.Logger) *Feed {
	return &Feed{client: client, writer: client.NewWriter(), groupPrefix: groupPrefix, log: lg}
}

func (f *Feed) Publish(ctx context.Context, e domain.OrderEvent) error {
	body, err := feed.Marshal(e)
	if err != nil {
		return err
	}
	err = f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OrderID.String()),
		Value: body,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", e.Kind, err)
	}
	return nil
}

func (f *Feed) Close() error { return f.writer.Close() }

func (f *Feed) Subscribe(ctx context.Context) (feed.Subscription, error) {
	group := fmt.Sprintf("%s-%s", f.groupPrefix, uuid.NewString())
	r := f.client.NewReader(group)

	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{reader: r, cancel: cancel, out: make(chan domain.OrderEvent, 16)}
	go s.pump(ctx, f.log)
	return s, nil
}

type subscription struct {
	reader *kafka.Reader
	cancel context.CancelFunc
	out    chan domain.OrderEvent
	once   sync.Once
}

func (s *subscription) Signals() <-chan domain.OrderEvent { return s.out }

func (s *subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

func (s *subscription) pump(ctx context.Context, lg *logger.Logger) {
	defer close(s.out)
	defer s.reader.Close()
	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				lg.Error("feed_read_failed", err, nil)
			}
			return
		}
		e, err := feed.Unmarshal(m.Value)
		if err != nil {
			lg.Warn("feed_bad_payload", map[string]any{"error": err.Error(), "offset": m.Offset})
			e = domain.OrderEvent{Kind: feed.KindTick, OccurredAt: m.Time}
		}
		select {
		case s.out <- e:
		default:
		}
	}
}
