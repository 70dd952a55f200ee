package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/ledger/memory"
)

// countingRepo records round-trips to the wrapped category repository.
type countingRepo struct {
	*memory.Store
	finds, saves int
	findErr      error
	saveErr      error
}

func newCountingRepo() *countingRepo {
	return &countingRepo{Store: memory.New()}
}

func (c *countingRepo) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	c.finds++
	if c.findErr != nil {
		return nil, c.findErr
	}
	return c.Store.FindCategoriesByTitles(ctx, titles)
}

func (c *countingRepo) SaveCategories(ctx context.Context, cats []core.Category) error {
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	return c.Store.SaveCategories(ctx, cats)
}

func TestResolveOne_CreatesThenReuses(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	r := NewCategoryResolver(repo)

	first, err := r.ResolveOne(ctx, "Food")
	require.NoError(t, err)
	second, err := r.ResolveOne(ctx, "Food")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.CategoryCount())
	assert.Equal(t, 1, repo.saves, "second call must not insert")
}

func TestResolveOne_EmptyTitleIsAName(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	r := NewCategoryResolver(repo)

	c, err := r.ResolveOne(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "", c.Title)

	again, err := r.ResolveOne(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
}

func TestResolveMany_DedupesAndCreatesMissing(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	r := NewCategoryResolver(repo)

	got, err := r.ResolveMany(ctx, []string{"Food", "Food", "Rent"})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.CategoryCount())
	require.Len(t, got, 2)
	assert.Equal(t, "Food", got["Food"].Title)
	assert.Equal(t, "Rent", got["Rent"].Title)
	assert.NotEqual(t, got["Food"].ID, got["Rent"].ID)
	assert.Equal(t, 1, repo.finds)
	assert.Equal(t, 1, repo.saves)
}

func TestResolveMany_ReusesExisting(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	existing := core.NewCategory("Food")
	require.NoError(t, repo.Store.SaveCategories(ctx, []core.Category{existing}))

	got, err := NewCategoryResolver(repo).ResolveMany(ctx, []string{"Food", "Salary"})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, got["Food"].ID)
	assert.Equal(t, "Salary", got["Salary"].Title)
	assert.Equal(t, 2, repo.CategoryCount())
}

func TestResolveMany_AllExistingSkipsInsert(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	require.NoError(t, repo.Store.SaveCategories(ctx, core.NewCategories([]string{"A", "B"})))

	_, err := NewCategoryResolver(repo).ResolveMany(ctx, []string{"B", "A", "B"})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.saves)
	assert.Equal(t, 2, repo.CategoryCount())
}

func TestResolveMany_CaseSensitive(t *testing.T) {
	got, err := NewCategoryResolver(newCountingRepo()).ResolveMany(context.Background(), []string{"food", "Food"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, got["food"].ID, got["Food"].ID)
}

func TestResolveMany_DuplicateRowsOldestWins(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	older, newer := core.NewCategory("Food"), core.NewCategory("Food")
	require.NoError(t, repo.Store.SaveCategories(ctx, []core.Category{older, newer}))

	got, err := NewCategoryResolver(repo).ResolveMany(ctx, []string{"Food"})
	require.NoError(t, err)
	assert.Equal(t, older.ID, got["Food"].ID)
}

func TestResolveMany_Empty(t *testing.T) {
	repo := newCountingRepo()
	got, err := NewCategoryResolver(repo).ResolveMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, repo.finds)
}

func TestResolver_PropagatesRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")

	repo := newCountingRepo()
	repo.findErr = boom
	_, err := NewCategoryResolver(repo).ResolveOne(ctx, "Food")
	assert.ErrorIs(t, err, boom)
	_, err = NewCategoryResolver(repo).ResolveMany(ctx, []string{"Food"})
	assert.ErrorIs(t, err, boom)

	repo = newCountingRepo()
	repo.saveErr = boom
	_, err = NewCategoryResolver(repo).ResolveMany(ctx, []string{"Food"})
	assert.ErrorIs(t, err, boom)
}
