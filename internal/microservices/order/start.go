package order

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/feed"
	"counter-pos/internal/microservices/order/repository"
	"counter-pos/internal/microservices/order/service"
)

// NewRepository stores the queue in postgres, or in process memory when
// pool is nil.
func NewRepository(pool *pgxpool.Pool) *repository.Repository {
	if pool != nil {
		return repository.New(pool)
	}
	return repository.NewInMemory()
}

func NewService(repo *repository.Repository, pub feed.Publisher, lg *logger.Logger, m *metrics.Pipeline) *service.Service {
	return service.New(*repo, pub, lg, m)
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, lg *logger.Logger) error {
	if err := repository.Migrate(ctx, pool); err != nil {
		return err
	}
	lg.Info("schema_migrated", nil)
	return nil
}
