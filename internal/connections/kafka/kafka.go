package kafka

import (
	"strings"

	"github.com/segmentio/kafka-go"

	"counter-pos/internal/common/config"
)

type Client struct {
	Brokers []string
	Topic   string
}

func NewClient(cfg config.Kafka) *Client {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers, Topic: cfg.Topic}
}

func (c *Client) Enabled() bool { return len(c.Brokers) > 0 }

func (c *Client) NewWriter() *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewReader joins groupID starting at the newest offset: a station only
// cares about changes from now on.
func (c *Client) NewReader(groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.Brokers,
		Topic:       c.Topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
}
