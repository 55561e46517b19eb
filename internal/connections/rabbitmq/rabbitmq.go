package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"counter-pos/internal/common/config"
	"counter-pos/internal/common/logger"
)

// Client owns one connection and a confirm-mode publishing channel. Both are
// redialed on first use after the broker drops them, and every exchange
// declared through the client is declared again on the new channel.
type Client struct {
	url  string
	log  *logger.Logger
	dial func(url string) (*amqp.Connection, error)

	mu        sync.Mutex // guards everything below
	conn      *amqp.Connection
	ch        *amqp.Channel
	exchanges []string
	closed    bool
}

var ErrClosed = errors.New("rabbitmq client is closed")

func Dial(cfg config.MQ, lg *logger.Logger) (*Client, error) {
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	c := &Client{
		url: fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
			url.PathEscape(cfg.User), url.PathEscape(cfg.Pass), cfg.Host, cfg.Port, url.PathEscape(cfg.VHost)),
		log:  lg,
		dial: amqp.Dial,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.ensure(); err != nil {
		return nil, err
	}
	return c, nil
}

// ensure returns a live publishing channel, reconnecting when the
// connection or the channel is gone. Callers hold mu.
func (c *Client) ensure() (*amqp.Channel, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil && !c.conn.IsClosed() && c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}
	redial := c.conn != nil
	c.drop()

	conn, err := c.dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	for _, ex := range c.exchanges {
		if err := declareFanout(ch, ex); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}
	c.conn, c.ch = conn, ch
	go c.watch(conn)
	if redial {
		c.log.Info("rabbitmq_redialed", map[string]any{"exchanges": len(c.exchanges)})
	}
	return ch, nil
}

func (c *Client) watch(conn *amqp.Connection) {
	if e, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1)); ok && e != nil {
		c.log.Warn("rabbitmq_connection_closed", map[string]any{"code": e.Code, "reason": e.Reason})
	}
}

func (c *Client) drop() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn, c.ch = nil, nil
}

// NewChannel opens a separate channel, used by consumers so they never share
// the confirm-mode publishing channel.
func (c *Client) NewChannel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.ensure(); err != nil {
		return nil, err
	}
	return c.conn.Channel()
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.drop()
}

func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.ensure()
	return err
}

// DeclareFanout declares a durable fanout exchange and remembers it for
// later reconnects.
func (c *Client) DeclareFanout(exchange string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, err := c.ensure()
	if err != nil {
		return err
	}
	if err := declareFanout(ch, exchange); err != nil {
		return err
	}
	for _, ex := range c.exchanges {
		if ex == exchange {
			return nil
		}
	}
	c.exchanges = append(c.exchanges, exchange)
	return nil
}

func declareFanout(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil)
}

// Publish sends one message and waits for the broker to confirm that
// delivery tag. A confirm that arrives after ctx is done is dropped with
// its own tag and never answers a later Publish.
func (c *Client) Publish(ctx context.Context, exchange, key string,
	body []byte, headers amqp.Table, contentType string, persistent bool) error {

	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}

	c.mu.Lock()
	ch, err := c.ensure()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: mode,
		ContentType:  contentType,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	})
	c.mu.Unlock()
	if err != nil {
		return err
	}

	ack, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ack {
		return fmt.Errorf("publish NACK from broker (tag %d)", dc.DeliveryTag)
	}
	return nil
}
