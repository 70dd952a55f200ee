package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// CategoryResolver maps category titles to stored categories, creating the
// missing ones. It keeps no cache: the repository is the source of truth.
type CategoryResolver struct {
	repo ledger.CategoryRepository
}

func NewCategoryResolver(repo ledger.CategoryRepository) *CategoryResolver {
	return &CategoryResolver{repo: repo}
}

// ResolveOne returns the category titled title, creating it if needed.
func (r *CategoryResolver) ResolveOne(ctx context.Context, title string) (core.Category, error) {
	found, err := r.repo.FindCategoriesByTitles(ctx, []string{title})
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	for _, c := range found {
		if c.Title == title {
			return c, nil
		}
	}

	c := core.NewCategory(title)
	if err := r.repo.SaveCategories(ctx, []core.Category{c}); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "category", title, "id", c.ID)
	return c, nil
}

// ResolveMany resolves every title with one lookup and at most one batch
// insert. The result has an entry for each distinct requested title.
func (r *CategoryResolver) ResolveMany(ctx context.Context, titles []string) (map[string]core.Category, error) {
	unique := dedupe(titles)
	if len(unique) == 0 {
		return map[string]core.Category{}, nil
	}

	found, err := r.repo.FindCategoriesByTitles(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	out := make(map[string]core.Category, len(unique))
	for _, c := range found {
		// oldest wins when storage holds duplicate titles
		if _, ok := out[c.Title]; !ok {
			out[c.Title] = c
		}
	}

	var missing []string
	for _, t := range unique {
		if _, ok := out[t]; !ok {
			missing = append(missing, t)
		}
	}

	if len(missing) > 0 {
		created := core.NewCategories(missing)
		if err := r.repo.SaveCategories(ctx, created); err != nil {
			return nil, fmt.Errorf("save categories: %w", err)
		}
		for _, c := range created {
			out[c.Title] = c
		}
	}

	slog.InfoContext(ctx, "Categories resolved",
		"requested", len(unique),
		"existing", len(unique)-len(missing),
		"created", len(missing))

	return out, nil
}

// dedupe keeps the first occurrence of each title, preserving order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
