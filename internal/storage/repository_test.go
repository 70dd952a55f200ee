package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Categories(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	food, rent := core.NewCategory("Food"), core.NewCategory("Rent")
	require.NoError(t, repo.SaveCategories(ctx, []core.Category{food, rent, core.NewCategory("food")}))

	got, err := repo.FindCategoriesByTitles(ctx, []string{"Food", "Rent", "Missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, food.ID, got[0].ID)
	assert.Equal(t, "Rent", got[1].Title)

	got, err = repo.FindCategoriesByTitles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := repo.CategoryCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestSQLiteRepository_TransactionsAndAggregate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.TransactionAggregate(ctx)
	require.NoError(t, err)
	assert.True(t, b.Total.IsZero())

	food := core.NewCategory("Food")
	require.NoError(t, repo.SaveCategories(ctx, []core.Category{food}))
	require.NoError(t, repo.SaveTransactions(ctx, []core.Transaction{
		core.NewTransaction("Salary", decimal.RequireFromString("1000.10"), core.Income, food),
		core.NewTransaction("Lunch", decimal.RequireFromString("20.05"), core.Outcome, food),
	}))

	b, err = repo.TransactionAggregate(ctx)
	require.NoError(t, err)
	assert.True(t, b.Income.Equal(decimal.RequireFromString("1000.10")))
	assert.True(t, b.Outcome.Equal(decimal.RequireFromString("20.05")))
	assert.True(t, b.Total.Equal(decimal.RequireFromString("980.05")))

	list, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Salary", list[0].Title)
	assert.Equal(t, food.ID, list[1].Category.ID)
	assert.Equal(t, "Food", list[1].Category.Title)
	assert.Equal(t, core.Outcome, list[1].Type)
}

func TestSQLiteRepository_SaveTransactionsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	food := core.NewCategory("Food")
	require.NoError(t, repo.SaveCategories(ctx, []core.Category{food}))

	orphan := core.NewTransaction("Orphan", decimal.NewFromInt(1), core.Income, core.Category{ID: uuid.New()})
	err := repo.SaveTransactions(ctx, []core.Transaction{
		core.NewTransaction("Good", decimal.NewFromInt(5), core.Income, food),
		orphan,
	})
	require.Error(t, err)

	list, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveCategories(ctx, []core.Category{core.NewCategory("Food")}))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.FindCategoriesByTitles(ctx, []string{"Food"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteRepository_FindCategoriesBeyondParameterLimit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	const n = 33000
	cats := make([]core.Category, n)
	titles := make([]string, n)
	for i := range cats {
		cats[i] = core.NewCategory(fmt.Sprintf("cat%d", i))
		cats[i].CreatedAt = cats[0].CreatedAt.Add(time.Duration(i) * time.Microsecond)
		// looked up newest first so chunks come back out of order
		titles[n-1-i] = cats[i].Title
	}
	require.NoError(t, repo.SaveCategories(ctx, cats))

	got, err := repo.FindCategoriesByTitles(ctx, titles)
	require.NoError(t, err)
	require.Len(t, got, n)
	for i := range got {
		if !assert.Equal(t, cats[i].ID, got[i].ID, "position %d", i) {
			break
		}
	}
}

func TestSQLiteRepository_DuplicateTitlesOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	older, newer := core.NewCategory("Food"), core.NewCategory("Food")
	newer.CreatedAt = older.CreatedAt.Add(time.Second)
	require.NoError(t, repo.SaveCategories(ctx, []core.Category{newer, older}))

	got, err := repo.FindCategoriesByTitles(ctx, []string{"Food"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, older.ID, got[0].ID)
	assert.Equal(t, newer.ID, got[1].ID)
}

func TestSQLiteRepository_SaveTransactionsValidates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	food := core.NewCategory("Food")
	require.NoError(t, repo.SaveCategories(ctx, []core.Category{food}))

	bad := core.NewTransaction("Gift", decimal.NewFromInt(1), core.TransactionType("transfer"), food)
	err := repo.SaveTransactions(ctx, []core.Transaction{
		core.NewTransaction("Good", decimal.NewFromInt(5), core.Income, food),
		bad,
	})
	require.ErrorIs(t, err, core.ErrInvalidType)

	err = repo.SaveTransactions(ctx, []core.Transaction{
		core.NewTransaction("Lunch", decimal.NewFromInt(5), core.Outcome, core.Category{}),
	})
	require.ErrorIs(t, err, core.ErrMissingCategory)

	list, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
