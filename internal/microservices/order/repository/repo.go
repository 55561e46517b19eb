package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"counter-pos/internal/domain"
)

// OrderRepositoryInterface is the shared order queue. Orders enter already
// sent; the only transition is sent -> completed and nothing is deleted.
type OrderRepositoryInterface interface {
	// CreateSent stores the header and every line atomically. On error
	// nothing is visible to readers.
	CreateSent(ctx context.Context, sub domain.Submission, at time.Time) (domain.OrderHeader, error)
	// ListSent returns sent orders oldest first (sent_at, then id).
	ListSent(ctx context.Context) ([]domain.Order, error)
	// Complete moves a sent order to completed. It returns
	// ErrConflictOnComplete when the order is no longer sent and
	// ErrOrderNotFound when it does not exist.
	Complete(ctx context.Context, id uuid.UUID, at time.Time, by string) (domain.OrderHeader, error)
	// ListCompleted returns orders completed in [from, to), newest first.
	ListCompleted(ctx context.Context, from, to time.Time) ([]domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
}

type Repository struct {
	OrderRepo OrderRepositoryInterface
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{
		OrderRepo: NewOrderRepository(pool),
	}
}

func NewInMemory() *Repository {
	return &Repository{
		OrderRepo: NewMemoryOrderRepository(),
	}
}
