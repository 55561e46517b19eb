package rabbitfeed

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-pos/internal/common/config"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/connections/rabbitmq"
	"counter-pos/internal/domain"
)

// Needs a broker: POS_TEST_RABBITMQ_HOST (and optionally _PORT).
func TestFanoutReachesEverySubscriber(t *testing.T) {
	host := os.Getenv("POS_TEST_RABBITMQ_HOST")
	if host == "" {
		t.Skip("POS_TEST_RABBITMQ_HOST not set")
	}
	port := 5672
	if p, err := strconv.Atoi(os.Getenv("POS_TEST_RABBITMQ_PORT")); err == nil {
		port = p
	}
	client, err := rabbitmq.Dial(config.MQ{Host: host, Port: port, User: "guest", Pass: "guest", VHost: "/"}, logger.Nop())
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	f, err := New(client, "orders_changes_test_"+uuid.NewString()[:8], "test", logger.Nop())
	require.NoError(t, err)

	a, err := f.Subscribe(ctx)
	require.NoError(t, err)
	defer a.Close()
	b, err := f.Subscribe(ctx)
	require.NoError(t, err)
	defer b.Close()

	e := domain.OrderEvent{Kind: domain.EventOrderSent, OrderID: uuid.New(), Status: domain.StatusSent, OccurredAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, f.Publish(ctx, e))

	for _, s := range []interface {
		Signals() <-chan domain.OrderEvent
	}{a, b} {
		select {
		case got := <-s.Signals():
			assert.Equal(t, e.OrderID, got.OrderID)
			assert.Equal(t, e.Kind, got.Kind)
		case <-ctx.Done():
			t.Fatal("signal not delivered")
		}
	}
}
