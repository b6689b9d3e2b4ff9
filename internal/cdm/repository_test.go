package cdm_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"dwh/internal/cdm"
	"dwh/internal/model"
	"dwh/internal/sqldb"
	"dwh/internal/sqldb/sqldbtest"
)

func productRow(user, id, name string, n int64) model.StatsRow {
	return model.StatsRow{UserID: user, ProductID: lo.ToPtr(id), ProductName: lo.ToPtr(name), OrderCount: n}
}

func categoryRow(user, id, name string, n int64) model.StatsRow {
	return model.StatsRow{UserID: user, CategoryID: lo.ToPtr(id), CategoryName: lo.ToPtr(name), OrderCount: n}
}

func TestMergeCounters_ReplayIsNoOp(t *testing.T) {
	sqldbtest.Each(t, func(t *testing.T, db *sqldb.DB) {
		repo := cdm.NewRepository(db)
		ctx := context.Background()
		stats := []model.StatsRow{
			productRow("U1", "P1", "Tea", 2),
			productRow("U1", "P2", "Soup", 1),
			categoryRow("U1", "c-drinks", "drinks", 2),
		}

		n, err := repo.MergeCounters(ctx, stats)
		require.NoError(t, err)
		require.Equal(t, 3, n)
		first, err := repo.ProductCounters(ctx, "U1")
		require.NoError(t, err)

		_, err = repo.MergeCounters(ctx, stats)
		require.NoError(t, err)
		second, err := repo.ProductCounters(ctx, "U1")
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Equal(t, []cdm.Counter{
			{UserID: "U1", ID: "P1", Name: "Tea", Count: 2},
			{UserID: "U1", ID: "P2", Name: "Soup", Count: 1},
		}, second)

		cats, err := repo.CategoryCounters(ctx, "U1")
		require.NoError(t, err)
		require.Equal(t, []cdm.Counter{{UserID: "U1", ID: "c-drinks", Name: "drinks", Count: 2}}, cats)
		require.Equal(t, 2, sqldbtest.Count(t, db, "user_product_counters"))
	})
}

func TestMergeCounters_OverwritesWithFresherTotals(t *testing.T) {
	db := sqldbtest.Open(t)
	repo := cdm.NewRepository(db)
	ctx := context.Background()

	_, err := repo.MergeCounters(ctx, []model.StatsRow{productRow("U1", "P1", "Tea", 1)})
	require.NoError(t, err)
	_, err = repo.MergeCounters(ctx, []model.StatsRow{productRow("U1", "P1", "Green tea", 3), productRow("U2", "P1", "Green tea", 1)})
	require.NoError(t, err)

	got, err := repo.ProductCounters(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, []cdm.Counter{{UserID: "U1", ID: "P1", Name: "Green tea", Count: 3}}, got)
}

func TestMergeCounters_SumsRowsForTheSameKey(t *testing.T) {
	db := sqldbtest.Open(t)
	repo := cdm.NewRepository(db)
	ctx := context.Background()

	_, err := repo.MergeCounters(ctx, []model.StatsRow{
		categoryRow("U1", "c1", "drinks", 1),
		categoryRow("U1", "c1", "drinks", 2),
	})
	require.NoError(t, err)
	got, err := repo.CategoryCounters(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, []cdm.Counter{{UserID: "U1", ID: "c1", Name: "drinks", Count: 3}}, got)
}

func TestMergeCounters_EmptyAndDimensionlessInputIsNoOp(t *testing.T) {
	db := sqldbtest.Open(t)
	repo := cdm.NewRepository(db)

	n, err := repo.MergeCounters(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
	n, err = repo.MergeCounters(context.Background(), []model.StatsRow{{UserID: "U1", OrderCount: 4}, {ProductID: lo.ToPtr("P1")}})
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, sqldbtest.Count(t, db, "user_product_counters"))
}
