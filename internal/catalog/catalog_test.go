package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-pos/internal/domain"
)

func TestStaticCatalog(t *testing.T) {
	ctx := context.Background()
	queso := domain.Product{ID: uuid.New(), Name: "queso"}
	arroz := domain.Product{ID: uuid.New(), Name: "Arroz", Status: domain.ProductPending}
	c := NewStatic(queso, arroz)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Arroz", list[0].Name)
	assert.Equal(t, "queso", list[1].Name)

	got, err := c.Get(ctx, arroz.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductPending, got.Status)

	_, err = c.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
