package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"counter-pos/internal/domain"
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const headerColumns = `
	o.id, o.customer_name, o.employee_id, o.status, o.sent_at, o.completed_at, o.created_at,
	COALESCE(e.name, o.employee_name)`

const headerFrom = `
	FROM orders o
	LEFT JOIN employees e ON e.id = o.employee_id`

func (or *OrderRepository) CreateSent(ctx context.Context, sub domain.Submission, at time.Time) (domain.OrderHeader, error) {
	h := domain.OrderHeader{
		ID:           uuid.New(),
		CustomerName: sub.CustomerName,
		Status:       domain.StatusSent,
		SentAt:       &at,
		CreatedAt:    at,
	}
	var employeeName, changedBy string
	if sub.Employee != nil {
		id := sub.Employee.ID
		h.EmployeeID = &id
		employeeName = sub.Employee.Name
		changedBy = sub.Employee.Name
	}
	if changedBy == "" {
		changedBy = "counter"
	}

	tx, err := or.db.Begin(ctx)
	if err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Insert header
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, customer_name, employee_id, employee_name, status, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, h.ID, h.CustomerName, h.EmployeeID, employeeName, string(h.Status), at); err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to insert order: %w", err)
	}

	// 2. Insert lines
	for i, l := range sub.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items
			    (id, order_id, position, product_id, product_name, unit, quantity,
			     weight, approx, volume, whole, fraction, extra, detail, note, created_at)
			VALUES
			    ($1, $2, $3, $4, $5, $6, $7,
			     $8::text::numeric, $9, $10::text::numeric, $11, $12, $13, $14, $15, $16)
		`,
			uuid.New(), h.ID, i, l.ProductID, l.ProductName, string(l.Unit), l.Count,
			decimalText(l.Weight), l.Approx, decimalText(l.Volume),
			l.Whole, int16(l.Fraction), l.Extra, l.Detail, l.Note, at,
		); err != nil {
			return domain.OrderHeader{}, fmt.Errorf("failed to insert order item %s: %w", l.ProductName, err)
		}
	}

	// 3. Status log
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`, h.ID, string(h.Status), changedBy, at); err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to insert order status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return h, nil
}

func (or *OrderRepository) ListSent(ctx context.Context) ([]domain.Order, error) {
	return or.list(ctx, `
		SELECT`+headerColumns+headerFrom+`
		WHERE o.status = 'sent'
		ORDER BY o.sent_at ASC, o.id ASC`)
}

func (or *OrderRepository) ListCompleted(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	return or.list(ctx, `
		SELECT`+headerColumns+headerFrom+`
		WHERE o.status = 'completed' AND o.completed_at >= $1 AND o.completed_at < $2
		ORDER BY o.completed_at DESC, o.id ASC`, from, to)
}

func (or *OrderRepository) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	orders, err := or.list(ctx, `
		SELECT`+headerColumns+headerFrom+`
		WHERE o.id = $1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	if len(orders) == 0 {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return orders[0], nil
}

// Complete relies on the conditional update alone: of two concurrent
// callers exactly one sees a row back.
func (or *OrderRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time, by string) (domain.OrderHeader, error) {
	tx, err := or.db.Begin(ctx)
	if err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	h := domain.OrderHeader{ID: id}
	var status string
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status = 'completed', completed_at = $2
		WHERE id = $1 AND status = 'sent'
		RETURNING customer_name, employee_id, status, sent_at, completed_at, created_at
	`, id, at).Scan(&h.CustomerName, &h.EmployeeID, &status, &h.SentAt, &h.CompletedAt, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var cur string
		err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&cur)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OrderHeader{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
		}
		if err != nil {
			return domain.OrderHeader{}, fmt.Errorf("failed to read order status: %w", err)
		}
		return domain.OrderHeader{}, fmt.Errorf("%w: %s is %s", domain.ErrConflictOnComplete, id, cur)
	}
	if err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to complete order: %w", err)
	}
	h.Status = domain.OrderStatus(status)

	if by == "" {
		by = "register"
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, 'completed', $2, $3)
	`, id, by, at); err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to insert order status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.OrderHeader{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return h, nil
}

func (or *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := or.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var o domain.Order
		var status string
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.EmployeeID, &status,
			&o.SentAt, &o.CompletedAt, &o.CreatedAt, &o.EmployeeName); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		o.Lines = []domain.OrderLine{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	lines, err := or.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		i := index[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return orders, nil
}

func (or *OrderRepository) lines(ctx context.Context, ids []uuid.UUID) ([]domain.OrderLine, error) {
	rows, err := or.db.Query(ctx, `
		SELECT id, order_id, position, product_id, product_name, unit, quantity,
		       weight::text, approx, volume::text, whole, fraction, extra, detail, note, created_at
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var (
			l              domain.OrderLine
			unit           string
			weight, volume *string
			fraction       int16
		)
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Position, &l.ProductID, &l.ProductName, &unit, &l.Count,
			&weight, &l.Approx, &volume, &l.Whole, &fraction, &l.Extra, &l.Detail, &l.Note, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		l.Unit = domain.UnitKind(unit)
		l.Fraction = domain.Fraction(fraction)
		if l.Weight, err = parseDecimal(weight); err != nil {
			return nil, fmt.Errorf("order item %s weight: %w", l.ID, err)
		}
		if l.Volume, err = parseDecimal(volume); err != nil {
			return nil, fmt.Errorf("order item %s volume: %w", l.ID, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}
	return out, nil
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
