package feed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-pos/internal/domain"
)

func recv(t *testing.T, s Subscription) (domain.OrderEvent, bool) {
	t.Helper()
	select {
	case e, ok := <-s.Signals():
		return e, ok
	case <-time.After(2 * time.Second):
		t.Fatal("no signal")
		return domain.OrderEvent{}, false
	}
}

func TestHubFansOutToEverySubscriber(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(4)
	a, err := hub.Subscribe(ctx)
	require.NoError(t, err)
	b, err := hub.Subscribe(ctx)
	require.NoError(t, err)

	e := domain.OrderEvent{Kind: domain.EventOrderSent, OrderID: uuid.New(), Status: domain.StatusSent}
	require.NoError(t, hub.Publish(ctx, e))

	got, ok := recv(t, a)
	require.True(t, ok)
	assert.Equal(t, e, got)
	got, ok = recv(t, b)
	require.True(t, ok)
	assert.Equal(t, e, got)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(1)
	s, err := hub.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(ctx, domain.OrderEvent{Kind: domain.EventOrderSent}))
	}
	_, ok := recv(t, s)
	assert.True(t, ok)
	select {
	case <-s.Signals():
		t.Fatal("buffer of one must not hold more signals")
	default:
	}
}

func TestHubCloseAndCancel(t *testing.T) {
	hub := NewHub(1)
	s, err := hub.Subscribe(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, ok := <-s.Signals()
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	s2, err := hub.Subscribe(ctx)
	require.NoError(t, err)
	cancel()
	_, ok = recv(t, s2)
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	// publishing with nobody listening is fine
	assert.NoError(t, hub.Publish(context.Background(), domain.OrderEvent{}))
}

func TestHubCloseReleasesWatcher(t *testing.T) {
	hub := NewHub(1)
	for i := 0; i < 3; i++ {
		s, err := hub.Subscribe(context.Background())
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}

	stopped := make(chan struct{})
	go func() {
		hub.watchers.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription watcher still running after Close")
	}
	assert.Equal(t, 0, hub.Subscribers())
}

func TestPollerTicks(t *testing.T) {
	p := NewPoller(10 * time.Millisecond)
	s, err := p.Subscribe(context.Background())
	require.NoError(t, err)

	e, ok := recv(t, s)
	require.True(t, ok)
	assert.Equal(t, KindTick, e.Kind)

	require.NoError(t, s.Close())
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-s.Signals():
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestEventWireFormat(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b, err := Marshal(domain.OrderEvent{Kind: domain.EventOrderCompleted, OrderID: id, Status: domain.StatusCompleted, ChangedBy: "caja-1", OccurredAt: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"order.completed","order_id":"`+id.String()+`","status":"completed","changed_by":"caja-1","occurred_at":"2026-03-02T09:00:00Z"}`, string(b))

	_, err = Unmarshal([]byte("nope"))
	assert.Error(t, err)
}
