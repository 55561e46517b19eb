package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-pos/internal/domain"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func submission(t *testing.T, customer string) domain.Submission {
	t.Helper()
	huevos := domain.Product{ID: uuid.New(), Name: "Huevos", Units: []domain.UnitKind{domain.UnitBox}}
	queso := domain.Product{ID: uuid.New(), Name: "Queso", Units: []domain.UnitKind{domain.UnitWeight}}
	pan := domain.Product{Name: "Pan"}

	box, err := domain.Encode(domain.UnitBox, domain.QuantityInput{Whole: 2, Fraction: domain.FractionHalf, Extra: 3})
	require.NoError(t, err)
	kg, err := domain.Encode(domain.UnitWeight, domain.QuantityInput{Weight: "1.25", Approx: "½ horma"})
	require.NoError(t, err)

	return domain.Submission{
		CustomerName: customer,
		Employee:     &domain.Employee{ID: uuid.New(), Name: "Rosa"},
		Lines: []domain.OrderLine{
			domain.NewOrderLine(huevos, box, "frágil"),
			domain.NewOrderLine(queso, kg, ""),
			domain.NewOrderLine(pan, domain.Count{N: 3}, ""),
		},
	}
}

// runQueueContract checks behaviour every queue backend must share. fresh
// returns an empty queue.
func runQueueContract(t *testing.T, fresh func(t *testing.T) OrderRepositoryInterface) {
	ctx := context.Background()

	t.Run("sent view is oldest first regardless of insert order", func(t *testing.T) {
		repo := fresh(t)
		h2, err := repo.CreateSent(ctx, submission(t, "B"), base.Add(2*time.Minute))
		require.NoError(t, err)
		h3, err := repo.CreateSent(ctx, submission(t, "C"), base.Add(3*time.Minute))
		require.NoError(t, err)
		h1, err := repo.CreateSent(ctx, submission(t, "A"), base.Add(1*time.Minute))
		require.NoError(t, err)

		sent, err := repo.ListSent(ctx)
		require.NoError(t, err)
		require.Len(t, sent, 3)
		assert.Equal(t, []uuid.UUID{h1.ID, h2.ID, h3.ID}, []uuid.UUID{sent[0].ID, sent[1].ID, sent[2].ID})
	})

	t.Run("lines keep order, names and rendered detail", func(t *testing.T) {
		repo := fresh(t)
		h, err := repo.CreateSent(ctx, submission(t, "Marta"), base)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSent, h.Status)

		o, err := repo.Get(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, "Marta", o.CustomerName)
		assert.Equal(t, "Rosa", o.EmployeeName)
		require.Len(t, o.Lines, 3)
		assert.Equal(t, "Huevos - 2 y ½ cajas + 3u", o.Lines[0].Label())
		assert.Equal(t, "2 y ½ cajas + 3u", o.Lines[0].Detail)
		assert.Equal(t, "frágil", o.Lines[0].Note)
		assert.Equal(t, "Queso (½ horma) - 1.25kg", o.Lines[1].Label())
		assert.Equal(t, "3x Pan", o.Lines[2].Label())
		assert.Nil(t, o.Lines[2].ProductID)
		for i, l := range o.Lines {
			assert.Equal(t, i, l.Position)
			assert.Equal(t, h.ID, l.OrderID)
		}
	})

	t.Run("complete is one-way and not repeatable", func(t *testing.T) {
		repo := fresh(t)
		h, err := repo.CreateSent(ctx, submission(t, "Marta"), base)
		require.NoError(t, err)

		done, err := repo.Complete(ctx, h.ID, base.Add(time.Hour), "caja-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, done.Status)

		_, err = repo.Complete(ctx, h.ID, base.Add(2*time.Hour), "caja-2")
		assert.ErrorIs(t, err, domain.ErrConflictOnComplete)

		o, err := repo.Get(ctx, h.ID)
		require.NoError(t, err)
		require.NotNil(t, o.CompletedAt)
		assert.True(t, o.CompletedAt.Equal(base.Add(time.Hour)))

		sent, err := repo.ListSent(ctx)
		require.NoError(t, err)
		assert.Empty(t, sent)

		completed, err := repo.ListCompleted(ctx, base, base.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, completed, 1)
		assert.Equal(t, h.ID, completed[0].ID)
	})

	t.Run("complete of unknown order", func(t *testing.T) {
		repo := fresh(t)
		_, err := repo.Complete(ctx, uuid.New(), base, "caja-1")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		_, err = repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("concurrent completes have exactly one winner", func(t *testing.T) {
		repo := fresh(t)
		h, err := repo.CreateSent(ctx, submission(t, "Marta"), base)
		require.NoError(t, err)

		const stations = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		start := make(chan struct{})
		for i := 0; i < stations; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, err := repo.Complete(ctx, h.ID, base.Add(time.Duration(i+1)*time.Second), "caja")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, domain.ErrConflictOnComplete):
					conflicts++
				}
			}(i)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, 1, wins)
		assert.Equal(t, stations-1, conflicts)

		completed, err := repo.ListCompleted(ctx, base, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, completed, 1)
	})

	t.Run("completed window is half-open and newest first", func(t *testing.T) {
		repo := fresh(t)
		var ids []uuid.UUID
		for i := 0; i < 3; i++ {
			h, err := repo.CreateSent(ctx, submission(t, "X"), base)
			require.NoError(t, err)
			_, err = repo.Complete(ctx, h.ID, base.Add(time.Duration(i)*time.Hour), "caja")
			require.NoError(t, err)
			ids = append(ids, h.ID)
		}

		got, err := repo.ListCompleted(ctx, base, base.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ids[1], got[0].ID)
		assert.Equal(t, ids[0], got[1].ID)
	})
}
