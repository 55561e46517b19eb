package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/domain"
	"counter-pos/internal/feed"
	"counter-pos/internal/microservices/order/repository"
)

type OrderServiceInterface interface {
	Submit(ctx context.Context, sub domain.Submission) (domain.OrderHeader, error)
	ListSent(ctx context.Context) ([]domain.Order, error)
	Complete(ctx context.Context, id uuid.UUID, by string) (domain.OrderHeader, error)
	ListCompleted(ctx context.Context, from, to time.Time) ([]domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
}

type OrderService struct {
	db      repository.OrderRepositoryInterface
	pub     feed.Publisher
	log     *logger.Logger
	metrics *metrics.Pipeline
	now     func() time.Time
}

func NewOrderService(db repository.OrderRepositoryInterface, pub feed.Publisher, lg *logger.Logger, m *metrics.Pipeline) *OrderService {
	if pub == nil {
		pub = feed.Nop{}
	}
	return &OrderService{db: db, pub: pub, log: lg, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// Submit hands a populated cart to the queue. Header and lines are written
// in one step; a failure leaves nothing behind and is reported as
// ErrSubmissionPartialFailure so the caller keeps its cart.
func (s *OrderService) Submit(ctx context.Context, sub domain.Submission) (domain.OrderHeader, error) {
	// 1. Preconditions
	sub.CustomerName = strings.TrimSpace(sub.CustomerName)
	switch {
	case sub.CustomerName == "":
		return domain.OrderHeader{}, fmt.Errorf("%w: customer name is required", domain.ErrNotReady)
	case len(sub.Lines) == 0:
		return domain.OrderHeader{}, fmt.Errorf("%w: at least one line is required", domain.ErrNotReady)
	case sub.Employee == nil:
		return domain.OrderHeader{}, fmt.Errorf("%w: no authenticated employee", domain.ErrNotReady)
	}

	// 2. Header + lines in one transaction
	h, err := s.db.CreateSent(ctx, sub, s.now())
	if err != nil {
		s.metrics.SubmitFailures.Inc()
		s.log.Error("order_submit_failed", err, map[string]any{"customer": sub.CustomerName, "lines": len(sub.Lines)})
		return domain.OrderHeader{}, fmt.Errorf("%w: %v", domain.ErrSubmissionPartialFailure, err)
	}
	s.metrics.Submitted.Inc()
	s.log.Info("order_submitted", map[string]any{
		"order_id": h.ID.String(), "customer": h.CustomerName, "lines": len(sub.Lines), "employee": sub.Employee.Name,
	})

	// 3. Notify; the order is already durable
	s.notify(ctx, domain.OrderEvent{
		Kind: domain.EventOrderSent, OrderID: h.ID, Status: h.Status, ChangedBy: sub.Employee.Name, OccurredAt: *h.SentAt,
	})
	return h, nil
}

func (s *OrderService) ListSent(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.db.ListSent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent orders: %w", err)
	}
	return orders, nil
}

// Complete reports ErrConflictOnComplete when another station got there
// first; callers refresh their view instead of failing.
func (s *OrderService) Complete(ctx context.Context, id uuid.UUID, by string) (domain.OrderHeader, error) {
	h, err := s.db.Complete(ctx, id, s.now(), by)
	if errors.Is(err, domain.ErrConflictOnComplete) {
		s.metrics.Conflicts.Inc()
		s.log.Info("order_complete_conflict", map[string]any{"order_id": id.String(), "by": by})
		return domain.OrderHeader{}, err
	}
	if err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to complete order: %w", err)
	}
	s.metrics.Completed.Inc()
	s.log.Info("order_completed", map[string]any{"order_id": id.String(), "by": by})

	s.notify(ctx, domain.OrderEvent{
		Kind: domain.EventOrderCompleted, OrderID: id, Status: h.Status, ChangedBy: by, OccurredAt: *h.CompletedAt,
	})
	return h, nil
}

func (s *OrderService) ListCompleted(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	if !from.Before(to) {
		return nil, &domain.ValidationError{Field: "from", Reason: "must be before to"}
	}
	orders, err := s.db.ListCompleted(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return s.db.Get(ctx, id)
}

func (s *OrderService) notify(ctx context.Context, e domain.OrderEvent) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.pub.Publish(pctx, e); err != nil {
		s.log.Error("order_event_publish_failed", err, map[string]any{"order_id": e.OrderID.String(), "kind": string(e.Kind)})
	}
}
