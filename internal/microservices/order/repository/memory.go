package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"counter-pos/internal/domain"
)

// MemoryOrderRepository backs single-process deployments and tests. Every
// method runs under one lock, so a submission is visible all at once or
// not at all.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
	log    []StatusChange
}

type StatusChange = domain.StatusChange

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: map[uuid.UUID]*domain.Order{}}
}

func (m *MemoryOrderRepository) CreateSent(_ context.Context, sub domain.Submission, at time.Time) (domain.OrderHeader, error) {
	o := &domain.Order{
		OrderHeader: domain.OrderHeader{
			ID:           uuid.New(),
			CustomerName: sub.CustomerName,
			Status:       domain.StatusSent,
			SentAt:       &at,
			CreatedAt:    at,
		},
		Lines: make([]domain.OrderLine, 0, len(sub.Lines)),
	}
	by := "counter"
	if sub.Employee != nil {
		id := sub.Employee.ID
		o.EmployeeID = &id
		o.EmployeeName = sub.Employee.Name
		if sub.Employee.Name != "" {
			by = sub.Employee.Name
		}
	}
	for i, l := range sub.Lines {
		l.ID = uuid.New()
		l.OrderID = o.ID
		l.Position = i
		l.CreatedAt = at
		o.Lines = append(o.Lines, l)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.log = append(m.log, StatusChange{OrderID: o.ID, Status: domain.StatusSent, ChangedBy: by, ChangedAt: at})
	return o.OrderHeader, nil
}

func (m *MemoryOrderRepository) ListSent(_ context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.filter(func(o *domain.Order) bool { return o.Status == domain.StatusSent })
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.SentAt.Equal(*b.SentAt) {
			return a.SentAt.Before(*b.SentAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (m *MemoryOrderRepository) ListCompleted(_ context.Context, from, to time.Time) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.filter(func(o *domain.Order) bool {
		return o.Status == domain.StatusCompleted &&
			!o.CompletedAt.Before(from) && o.CompletedAt.Before(to)
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CompletedAt.Equal(*b.CompletedAt) {
			return a.CompletedAt.After(*b.CompletedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (m *MemoryOrderRepository) Get(_ context.Context, id uuid.UUID) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return clone(o), nil
}

func (m *MemoryOrderRepository) Complete(_ context.Context, id uuid.UUID, at time.Time, by string) (domain.OrderHeader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return domain.OrderHeader{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	if o.Status != domain.StatusSent {
		return domain.OrderHeader{}, fmt.Errorf("%w: %s is %s", domain.ErrConflictOnComplete, id, o.Status)
	}
	o.Status = domain.StatusCompleted
	o.CompletedAt = &at
	if by == "" {
		by = "register"
	}
	m.log = append(m.log, StatusChange{OrderID: id, Status: domain.StatusCompleted, ChangedBy: by, ChangedAt: at})
	return o.OrderHeader, nil
}

// History returns the status log of one order in write order.
func (m *MemoryOrderRepository) History(id uuid.UUID) []StatusChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StatusChange
	for _, c := range m.log {
		if c.OrderID == id {
			out = append(out, c)
		}
	}
	return out
}

// Timeline pages through History.
func (m *MemoryOrderRepository) Timeline(_ context.Context, id uuid.UUID, limit, offset int) ([]domain.StatusChange, error) {
	all := m.History(id)
	out := []domain.StatusChange{}
	for i := offset; i < len(all) && len(out) < limit; i++ {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *MemoryOrderRepository) filter(keep func(*domain.Order) bool) []domain.Order {
	out := []domain.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, clone(o))
		}
	}
	return out
}

func clone(o *domain.Order) domain.Order {
	c := *o
	c.Lines = append([]domain.OrderLine{}, o.Lines...)
	return c
}
