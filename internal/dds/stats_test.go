package dds_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dwh/internal/model"
)

func TestUserStats_CountsFinalOrdersPerProductAndCategory(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	user := &model.User{ID: "U1", Name: "Ann"}
	rest := &model.Restaurant{ID: "R1", Name: "Cafe"}
	tea := model.Product{ID: "P1", Name: "Tea", Category: "drinks"}
	soup := model.Product{ID: "P2", Name: "Soup", Category: "food"}

	orders := []model.Order{
		{ID: "O1", Status: "CLOSED", User: user, Restaurant: rest, Products: []model.Product{tea}},
		{ID: "O2", Status: "CLOSED", User: user, Restaurant: rest, Products: []model.Product{tea, soup}},
		{ID: "O3", Status: "OPEN", User: user, Restaurant: rest, Products: []model.Product{soup}},
		{ID: "O4", Status: "CLOSED", User: &model.User{ID: "U2"}, Restaurant: rest, Products: []model.Product{soup}},
	}
	for _, o := range orders {
		require.NoError(t, repo.Stage(ctx, o))
	}

	stats, err := repo.UserStats(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, stats, 4)
	require.Equal(t, "P1", *stats[0].ProductID)
	require.Equal(t, "Tea", *stats[0].ProductName)
	require.Nil(t, stats[0].CategoryID)
	require.EqualValues(t, 2, stats[0].OrderCount)
	require.Equal(t, "P2", *stats[1].ProductID)
	require.EqualValues(t, 1, stats[1].OrderCount)
	require.Equal(t, "drinks", *stats[2].CategoryName)
	require.NotEmpty(t, *stats[2].CategoryID)
	require.Nil(t, stats[2].ProductID)
	require.EqualValues(t, 2, stats[2].OrderCount)
	require.Equal(t, "food", *stats[3].CategoryName)
	require.EqualValues(t, 1, stats[3].OrderCount)

	// O3 closes; its status history now ends in the final status
	orders[2].Status = "CLOSED"
	soup.Name = "Tomato soup"
	orders[2].Products = []model.Product{soup}
	require.NoError(t, repo.Stage(ctx, orders[2]))
	stats, err = repo.UserStats(ctx, "U1")
	require.NoError(t, err)
	require.EqualValues(t, 2, stats[1].OrderCount)
	require.Equal(t, "Tomato soup", *stats[1].ProductName)
	require.EqualValues(t, 2, stats[3].OrderCount)

	// reopening removes it again
	orders[0].Status = "REOPENED"
	require.NoError(t, repo.Stage(ctx, orders[0]))
	stats, err = repo.UserStats(ctx, "U1")
	require.NoError(t, err)
	require.EqualValues(t, 1, stats[0].OrderCount)
	for _, row := range stats {
		require.Equal(t, "U1", row.UserID)
	}
}

func TestUserStats_UnknownUserIsEmpty(t *testing.T) {
	repo, _ := newRepo(t)
	require.NoError(t, repo.Stage(context.Background(), orderO1()))
	stats, err := repo.UserStats(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, stats)
}
