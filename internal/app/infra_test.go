package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-pos/internal/common/config"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/domain"
	"counter-pos/internal/feed"
)

func memoryConfig(t *testing.T) config.App {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Driver = "memory"
	cfg.Feed.Transport = "memory"
	cfg.Draft.Driver = "memory"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestSeedCatalogDerivesStableIDs(t *testing.T) {
	seeds := []config.ProductSeed{
		{Name: "Queso", Units: []string{"weight", "count"}, Location: " Heladera "},
		{Name: "Pan"},
	}
	a, err := SeedCatalog(seeds)
	require.NoError(t, err)
	b, err := SeedCatalog(seeds)
	require.NoError(t, err)

	la, _ := a.List(context.Background())
	lb, _ := b.List(context.Background())
	require.Len(t, la, 2)
	assert.Equal(t, la, lb)
	assert.Equal(t, "Pan", la[0].Name)
	assert.Equal(t, domain.UnitCount, la[0].DefaultUnit())
	assert.Equal(t, []domain.UnitKind{domain.UnitWeight, domain.UnitCount}, la[1].Units)
	assert.Equal(t, "Heladera", la[1].LocationName())
}

func TestSeedCatalogRejectsBadSeeds(t *testing.T) {
	_, err := SeedCatalog([]config.ProductSeed{{Name: " "}})
	assert.Error(t, err)
	_, err = SeedCatalog([]config.ProductSeed{{Name: "Pan", Units: []string{"crate"}}})
	assert.Error(t, err)
	_, err = SeedCatalog([]config.ProductSeed{{Name: "Pan", ID: "nope"}})
	assert.Error(t, err)

	id := uuid.New()
	c, err := SeedCatalog([]config.ProductSeed{{Name: "Pan", ID: id.String()}})
	require.NoError(t, err)
	p, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Pan", p.Name)
}

func TestMemoryInfraSharesFeedAndQueue(t *testing.T) {
	ctx := context.Background()
	in, err := Open(ctx, memoryConfig(t), logger.Nop())
	require.NoError(t, err)
	defer in.Close()
	assert.Nil(t, in.Pool)

	pub, sub, err := in.Feed("a")
	require.NoError(t, err)
	pub2, _, err := in.Feed("b")
	require.NoError(t, err)
	assert.Same(t, pub.(*feed.Hub), pub2.(*feed.Hub))

	m := metrics.New(nil, "test")
	a := in.Orders(pub, logger.Nop(), m)
	b := in.Orders(pub, logger.Nop(), m)
	assert.Same(t, a, b)

	s, err := sub.Subscribe(ctx)
	require.NoError(t, err)
	defer s.Close()
	h, err := a.Submit(ctx, domain.Submission{
		CustomerName: "Marta",
		Employee:     &domain.Employee{ID: uuid.New(), Name: "Rosa"},
		Lines:        []domain.OrderLine{domain.NewOrderLine(domain.Product{Name: "Pan"}, domain.Count{N: 1}, "")},
	})
	require.NoError(t, err)
	e := <-s.Signals()
	assert.Equal(t, h.ID, e.OrderID)

	store, err := in.DraftStore(ctx)
	require.NoError(t, err)
	d, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, d.Lines)
}

func TestRunRejectsUnknownModeAndMigrateWithoutPostgres(t *testing.T) {
	in, err := Open(context.Background(), memoryConfig(t), logger.Nop())
	require.NoError(t, err)
	defer in.Close()

	assert.ErrorContains(t, Run(context.Background(), in, "drive-thru", 0), "unknown mode")
	assert.ErrorContains(t, Run(context.Background(), in, ModeMigrate, 0), "postgres")
}
