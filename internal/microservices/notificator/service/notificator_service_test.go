package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/domain"
	"counter-pos/internal/feed"
	"counter-pos/internal/microservices/order/repository"
	ordersvc "counter-pos/internal/microservices/order/service"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for _, l := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		var m map[string]any
		if json.Unmarshal([]byte(l), &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

func (b *syncBuffer) find(action string) map[string]any {
	for _, l := range b.lines() {
		if l["action"] == action {
			return l
		}
	}
	return nil
}

func TestNotifyLogsResolvedOrders(t *testing.T) {
	hub := feed.NewHub(8)
	orders := ordersvc.NewOrderService(repository.NewMemoryOrderRepository(), hub, logger.Nop(), metrics.New(nil, "test"))
	out := &syncBuffer{}
	ns := NewNotificatorService(hub, orders, logger.NewWithWriter("notification-subscriber", out))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ns.Notify(ctx) }()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	_, err := orders.Submit(ctx, domain.Submission{
		CustomerName: "Marta",
		Employee:     &domain.Employee{ID: uuid.New(), Name: "Rosa"},
		Lines:        []domain.OrderLine{domain.NewOrderLine(domain.Product{Name: "Pan"}, domain.Count{N: 2}, "")},
	})
	require.NoError(t, err)
	require.NoError(t, hub.Publish(ctx, domain.OrderEvent{Kind: domain.EventOrderSent, OrderID: uuid.New()}))

	var got map[string]any
	require.Eventually(t, func() bool {
		got = out.find("notification_received")
		return got != nil && out.find("notification_order_unreadable") != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Marta", got["customer_name"])
	assert.Equal(t, "sent", got["status"])
	assert.EqualValues(t, 1, got["items"])
	assert.Equal(t, "notification-subscriber", got["service"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Notify did not return")
	}
}
