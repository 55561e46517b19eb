package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"counter-pos/internal/domain"
)

// PostgresSuite runs against POS_TEST_DATABASE_URL and is skipped without it.
type PostgresSuite struct {
	suite.Suite
	pool *pgxpool.Pool
}

func TestPostgresQueue(t *testing.T) {
	if os.Getenv("POS_TEST_DATABASE_URL") == "" {
		t.Skip("POS_TEST_DATABASE_URL not set")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv("POS_TEST_DATABASE_URL"))
	s.Require().NoError(err)
	s.Require().NoError(Migrate(ctx, pool))
	s.Require().NoError(Migrate(ctx, pool), "schema must be re-appliable")
	s.pool = pool
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresSuite) truncate(t *testing.T) {
	_, err := s.pool.Exec(context.Background(),
		`TRUNCATE order_status_log, order_items, orders, employees RESTART IDENTITY`)
	require.NoError(t, err)
}

func (s *PostgresSuite) TestContract() {
	runQueueContract(s.T(), func(t *testing.T) OrderRepositoryInterface {
		s.truncate(t)
		return NewOrderRepository(s.pool)
	})
}

func (s *PostgresSuite) TestEmployeeNameFromDirectory() {
	ctx := context.Background()
	s.truncate(s.T())
	repo := NewOrderRepository(s.pool)

	sub := submission(s.T(), "Marta")
	_, err := s.pool.Exec(ctx, `INSERT INTO employees (id, name) VALUES ($1, 'Rosa María')`, sub.Employee.ID)
	s.Require().NoError(err)

	h, err := repo.CreateSent(ctx, sub, base)
	s.Require().NoError(err)
	o, err := repo.Get(ctx, h.ID)
	s.Require().NoError(err)
	s.Equal("Rosa María", o.EmployeeName)
}

func (s *PostgresSuite) TestFailedLineInsertLeavesNoHeader() {
	ctx := context.Background()
	s.truncate(s.T())
	repo := NewOrderRepository(s.pool)

	sub := submission(s.T(), "Marta")
	// postgres text rejects NUL, so the last line insert fails after the header went in
	sub.Lines = append(sub.Lines, domain.OrderLine{
		ProductName:    "Pan",
		Unit:           domain.UnitCount,
		QuantityFields: domain.QuantityFields{Count: 1},
		Note:           "bad\x00note",
	})

	_, err := repo.CreateSent(ctx, sub, base)
	s.Require().Error(err)

	var n int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n))
	s.Zero(n)
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM order_items`).Scan(&n))
	s.Zero(n)
}

func (s *PostgresSuite) TestStatusLogRows() {
	ctx := context.Background()
	s.truncate(s.T())
	repo := NewOrderRepository(s.pool)

	h, err := repo.CreateSent(ctx, submission(s.T(), "Marta"), base)
	s.Require().NoError(err)
	_, err = repo.Complete(ctx, h.ID, base.Add(1), "caja-1")
	s.Require().NoError(err)

	var n int
	s.Require().NoError(s.pool.QueryRow(ctx,
		`SELECT count(*) FROM order_status_log WHERE order_id = $1`, h.ID).Scan(&n))
	s.Equal(2, n)
}
