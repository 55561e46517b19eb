package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-pos/internal/domain"
)

type stubRepo struct{ limit, offset int }

func (s *stubRepo) Timeline(_ context.Context, id uuid.UUID, limit, offset int) ([]domain.StatusChange, error) {
	s.limit, s.offset = limit, offset
	return []domain.StatusChange{{OrderID: id, Status: domain.StatusSent}}, nil
}

type stubOrders map[uuid.UUID]domain.Order

func (s stubOrders) Get(_ context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := s[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func TestTimelineClampsPaging(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{}
	svc := NewTrackerService(repo, stubOrders{id: {OrderHeader: domain.OrderHeader{ID: id}}})

	_, err := svc.GetOrderTimeline(context.Background(), id, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, repo.limit)
	assert.Equal(t, 0, repo.offset)

	_, err = svc.GetOrderTimeline(context.Background(), id, 10_000, 4)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, repo.limit)
	assert.Equal(t, 4, repo.offset)

	_, err = svc.GetOrderTimeline(context.Background(), uuid.New(), 10, 0)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderViewUsesLatestTransition(t *testing.T) {
	id := uuid.New()
	sent := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	done := sent.Add(20 * time.Minute)
	orders := stubOrders{id: {OrderHeader: domain.OrderHeader{
		ID: id, CustomerName: "Marta", Status: domain.StatusCompleted,
		SentAt: &sent, CompletedAt: &done, CreatedAt: sent,
	}}}
	v, err := NewTrackerService(&stubRepo{}, orders).GetOrderView(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, done, v.UpdatedAt)
	assert.Equal(t, domain.StatusCompleted, v.Status)
	assert.Equal(t, "Marta", v.CustomerName)
}
