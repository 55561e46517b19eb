package tracker

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"counter-pos/internal/microservices/tracker/repository"
	"counter-pos/internal/microservices/tracker/service"
)

// NewService reads the status log from postgres, or from local when no pool
// is configured.
func NewService(pool *pgxpool.Pool, local repository.TrackerRepoInterface, orders service.OrderReader) *service.TrackerService {
	var repo repository.TrackerRepoInterface = local
	if pool != nil {
		repo = repository.NewTrackerRepo(pool)
	}
	return service.NewTrackerService(repo, orders)
}
