// Package catalog reads products for the counter. Products are maintained
// elsewhere; nothing here writes them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"counter-pos/internal/domain"
)

type Catalog interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Product, error)
}

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres { return &Postgres{db: db} }

func (p *Postgres) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, units, location, status
		FROM products
		ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return out, nil
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	row := p.db.QueryRow(ctx, `SELECT id, name, units, location, status FROM products WHERE id = $1`, id)
	prod, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return prod, err
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		prod   domain.Product
		units  []string
		status string
	)
	if err := row.Scan(&prod.ID, &prod.Name, &units, &prod.Location, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("failed to scan product: %w", err)
	}
	prod.Status = domain.ProductStatus(status)
	for _, u := range units {
		kind, err := domain.ParseUnitKind(u)
		if err != nil {
			return domain.Product{}, fmt.Errorf("product %s: %w", prod.ID, err)
		}
		prod.Units = append(prod.Units, kind)
	}
	return prod, nil
}

// Static serves a fixed product list, for tests and demo deployments.
type Static struct {
	byID  map[uuid.UUID]domain.Product
	order []uuid.UUID
}

func NewStatic(products ...domain.Product) *Static {
	s := &Static{byID: map[uuid.UUID]domain.Product{}}
	for _, p := range products {
		if _, dup := s.byID[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.byID[p.ID] = p
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		return strings.ToLower(s.byID[s.order[i]].Name) < strings.ToLower(s.byID[s.order[j]].Name)
	})
	return s
}

func (s *Static) List(context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *Static) Get(_ context.Context, id uuid.UUID) (domain.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return p, nil
}
