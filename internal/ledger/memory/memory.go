package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

var _ ledger.Repository = (*Store)(nil)

// Store keeps categories and transactions in process memory.
type Store struct {
	mu    sync.Mutex
	cats  []core.Category
	items []core.Transaction
}

func New() *Store {
	return &Store{}
}

// FindCategoriesByTitles returns matching categories in insertion order.
func (s *Store) FindCategoriesByTitles(_ context.Context, titles []string) ([]core.Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	want := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		want[t] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.cats {
		if _, ok := want[c.Title]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) SaveCategories(_ context.Context, categories []core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats = append(s.cats, categories...)
	return nil
}

// TransactionAggregate computes the balance over every stored transaction.
func (s *Store) TransactionAggregate(_ context.Context) (core.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.ComputeBalance(s.items), nil
}

// SaveTransactions stores txs only if every one is valid and every
// category reference exists.
func (s *Store) SaveTransactions(_ context.Context, txs []core.Transaction) error {
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[uuid.UUID]struct{}, len(s.cats))
	for _, c := range s.cats {
		known[c.ID] = struct{}{}
	}
	for _, tx := range txs {
		if _, ok := known[tx.CategoryID]; !ok {
			return fmt.Errorf("transaction %s: unknown category %s", tx.ID, tx.CategoryID)
		}
	}
	s.items = append(s.items, txs...)
	return nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...), nil
}

// CategoryCount returns how many category rows are stored.
func (s *Store) CategoryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cats)
}
