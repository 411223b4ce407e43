package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	items, err := repo.LoadExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, repo.SaveExpenses(ctx, sampleExpenses()))
	extra := core.Expense{ID: 3, Description: "Taxi", Amount: 25, Category: "Transport", CreatedAt: core.NewDate(2025, 7, 3)}
	require.NoError(t, repo.AppendExpense(ctx, extra))

	items, err = repo.LoadExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, append(sampleExpenses(), extra), items)

	// Save replaces the previous content.
	require.NoError(t, repo.SaveExpenses(ctx, items[1:]))
	items, err = repo.LoadExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)
}

func TestSQLiteRepositoryBudgets(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	assert.Equal(t, core.DefaultBudgets(), repo.LoadBudgets(ctx))

	require.NoError(t, repo.SaveBudgets(ctx, sampleBudgets()))
	assert.Equal(t, sampleBudgets(), repo.LoadBudgets(ctx))

	b := sampleBudgets()
	b[1] = math.Inf(1)
	require.NoError(t, repo.SaveBudgets(ctx, b))
	assert.Equal(t, b, repo.LoadBudgets(ctx))
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveExpenses(ctx, sampleExpenses()))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	items, err := repo.LoadExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleExpenses(), items)
}
