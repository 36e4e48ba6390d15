package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSearchFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	idx := openMem(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, idx.Upsert(ctx, AlertDoc{ID: "a1", ChildName: "Asha", LastSeenLocation: "Central Park", Description: "red jacket", RiskLevel: "high", Status: "active", CreatedAt: now}))
	require.NoError(t, idx.Upsert(ctx, AlertDoc{ID: "a2", ChildName: "Ravi", LastSeenLocation: "Central Station", Description: "blue cap", RiskLevel: "low", Status: "resolved", CreatedAt: now}))

	hits, err := idx.Search(ctx, "central", "active", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a1", hits[0].ID)

	hits, err = idx.Search(ctx, "central", "", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search(ctx, "jackt", "active", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "fuzzy match on description")
}

func TestDeleteAndRebuild(t *testing.T) {
	ctx := context.Background()
	idx := openMem(t)

	require.NoError(t, idx.Rebuild(ctx, []AlertDoc{
		{ID: "a1", ChildName: "Asha", Status: "active"},
		{ID: "a2", ChildName: "Meera", Status: "active"},
	}))
	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	require.NoError(t, idx.Delete(ctx, "a1"))
	hits, err := idx.Search(ctx, "asha", "active", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestClosedIndex(t *testing.T) {
	idx, err := Open(Config{})
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), "x", "", 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEmptyQuery(t *testing.T) {
	hits, err := openMem(t).Search(context.Background(), "   ", "active", 10)
	require.NoError(t, err)
	assert.Nil(t, hits)
}
