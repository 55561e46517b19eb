package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"counter-pos/internal/domain"
	"counter-pos/internal/microservices/tracker/repository"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type OrderReader interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
}

// OrderView is the current state of one order.
type OrderView struct {
	OrderID      uuid.UUID          `json:"order_id"`
	CustomerName string             `json:"customer_name"`
	Status       domain.OrderStatus `json:"status"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type TrackerServiceInterface interface {
	GetOrderView(ctx context.Context, id uuid.UUID) (OrderView, error)
	GetOrderTimeline(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.StatusChange, error)
}

type TrackerService struct {
	repo   repository.TrackerRepoInterface
	orders OrderReader
}

func NewTrackerService(repo repository.TrackerRepoInterface, orders OrderReader) *TrackerService {
	return &TrackerService{repo: repo, orders: orders}
}

func (s *TrackerService) GetOrderView(ctx context.Context, id uuid.UUID) (OrderView, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return OrderView{}, err
	}
	v := OrderView{OrderID: o.ID, CustomerName: o.CustomerName, Status: o.Status, UpdatedAt: o.CreatedAt}
	switch {
	case o.CompletedAt != nil:
		v.UpdatedAt = *o.CompletedAt
	case o.SentAt != nil:
		v.UpdatedAt = *o.SentAt
	}
	return v, nil
}

// GetOrderTimeline returns ErrOrderNotFound for unknown orders rather than
// an empty page. limit is clamped to [1, MaxLimit].
func (s *TrackerService) GetOrderTimeline(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.StatusChange, error) {
	if _, err := s.orders.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.Timeline(ctx, id, limit, offset)
}
