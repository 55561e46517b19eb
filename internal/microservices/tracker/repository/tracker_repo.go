package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"counter-pos/internal/domain"
)

// TrackerRepoInterface reads the status log written by the order queue.
type TrackerRepoInterface interface {
	Timeline(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.StatusChange, error)
}

type TrackerRepo struct {
	db *pgxpool.Pool
}

func NewTrackerRepo(db *pgxpool.Pool) *TrackerRepo { return &TrackerRepo{db: db} }

func (r *TrackerRepo) Timeline(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.StatusChange, error) {
	rows, err := r.db.Query(ctx, `
		SELECT order_id, status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query status log: %w", err)
	}
	defer rows.Close()

	out := []domain.StatusChange{}
	for rows.Next() {
		var (
			c      domain.StatusChange
			status string
		)
		if err := rows.Scan(&c.OrderID, &status, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		c.Status = domain.OrderStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}
