package store_test

import (
	"context"
	"testing"

	"vrflottery/internal/models"
	"vrflottery/internal/store"

	"github.com/stretchr/testify/require"
)

func settlement(drawingID string, requestID uint64, winner string, settledAt int64) models.Settlement {
	return models.Settlement{
		ID:          drawingID,
		RequestID:   requestID,
		Winner:      winner,
		WinnerIndex: 0,
		Entrants:    1,
		Amount:      10_000_000,
		RandomWord:  "7",
		SettledAt:   settledAt,
	}
}

func TestSettlementRepository(t *testing.T) {
	testCases := []struct {
		description string
		dir         func(t *testing.T) string
	}{
		{"in memory", func(*testing.T) string { return "" }},
		{"on disk", func(t *testing.T) string { return t.TempDir() }},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			ctx := context.Background()
			repo, err := store.NewSettlementRepository(tc.dir(t))
			require.NoError(t, err)
			defer repo.Close()

			_, err = repo.Get(ctx, "d1")
			require.ErrorIs(t, err, store.ErrSettlementNotFound)

			require.NoError(t, repo.Add(ctx, settlement("d1", 1, "alice", 1_700_000_100)))
			require.NoError(t, repo.Add(ctx, settlement("d2", 2, "bob", 1_700_000_200)))
			require.NoError(t, repo.Add(ctx, settlement("d3", 3, "carol", 1_700_000_300)))

			require.Error(t, repo.Add(ctx, settlement("d2", 4, "mallory", 1_700_000_400)))
			require.ErrorIs(t, repo.Add(ctx, settlement("", 5, "mallory", 1_700_000_500)), store.ErrMissingDrawingID)

			got, err := repo.Get(ctx, "d2")
			require.NoError(t, err)
			require.Equal(t, settlement("d2", 2, "bob", 1_700_000_200), *got)

			all, err := repo.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			require.Equal(t, []string{"carol", "bob", "alice"}, winners(all))

			latest, err := repo.List(ctx, 2)
			require.NoError(t, err)
			require.Equal(t, []string{"carol", "bob"}, winners(latest))
		})
	}
}

func TestSettlementRepositoryReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := store.NewSettlementRepository(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, settlement("d1", 1, "alice", 1_700_000_100)))
	repo.Close()

	// a restarted local oracle numbers its requests from 1 again
	repo, err = store.NewSettlementRepository(dir)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Add(ctx, settlement("d2", 1, "bob", 1_700_000_200)))

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "alice"}, winners(all))

	first, err := repo.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "alice", first.Winner)
}

func TestSettlementRepositoryEmpty(t *testing.T) {
	repo, err := store.NewSettlementRepository("")
	require.NoError(t, err)
	defer repo.Close()

	all, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, all)
	require.Empty(t, all)
}

func winners(settlements []models.Settlement) []string {
	out := make([]string, 0, len(settlements))
	for _, s := range settlements {
		out = append(out, s.Winner)
	}
	return out
}
