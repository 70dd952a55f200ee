package ledger

import (
	"context"
	"io"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// CategoryRepository looks up and stores categories. Titles are matched
	// exactly and are not unique at storage level.
	CategoryRepository interface {
		// FindCategoriesByTitles returns every stored category whose title is
		// in titles, oldest first.
		FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error)
		SaveCategories(ctx context.Context, categories []core.Category) error
	}

	TransactionRepository interface {
		// TransactionAggregate returns the balance over the whole ledger.
		TransactionAggregate(ctx context.Context) (core.Balance, error)
		// SaveTransactions persists txs as one batch.
		SaveTransactions(ctx context.Context, txs []core.Transaction) error
		// ListTransactions returns every transaction with its category, oldest first.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	Repository interface {
		CategoryRepository
		TransactionRepository
	}

	// FileOpener supplies a readable byte stream for a file handle.
	FileOpener interface {
		OpenReadStream(ctx context.Context, path string) (io.ReadCloser, error)
	}
)
