package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
)

// CreateTransactionRequest carries the fields of a single new transaction.
type CreateTransactionRequest struct {
	Title    string
	Value    decimal.Decimal
	Type     core.TransactionType
	Category string
}

func (r CreateTransactionRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return core.ErrEmptyTitle
	}
	if !r.Type.IsValid() {
		return core.ErrInvalidType
	}
	if r.Value.IsNegative() {
		return core.ErrNegativeValue
	}
	return nil
}

// LedgerService creates and imports transactions against a repository.
//
// Writes are serialized with an in-process lock so the balance check in
// CreateTransaction and the insert that follows cannot interleave with
// another write from the same process. Separate processes sharing one
// database are not coordinated.
type LedgerService struct {
	repo       ledger.Repository
	files      ledger.FileOpener
	categories *CategoryResolver

	writeMu sync.Mutex
}

// NewLedgerService wires the service. files may be nil when file imports
// are not needed.
func NewLedgerService(repo ledger.Repository, files ledger.FileOpener) *LedgerService {
	return &LedgerService{
		repo:       repo,
		files:      files,
		categories: NewCategoryResolver(repo),
	}
}

// CreateTransaction persists one transaction. Outcomes larger than the
// current total fail with core.ErrInsufficientBalance and write nothing.
func (s *LedgerService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	if err := req.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	balance, err := s.repo.TransactionAggregate(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get balance: %w", err)
	}

	if req.Type == core.Outcome && !balance.CanAfford(req.Value) {
		slog.WarnContext(ctx, "Transaction rejected",
			"title", req.Title,
			"value", req.Value.String(),
			"total", balance.Total.String(),
			"reason", core.ErrInsufficientBalance)
		return core.Transaction{}, core.ErrInsufficientBalance
	}

	category, err := s.categories.ResolveOne(ctx, req.Category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve category: %w", err)
	}

	tx := core.NewTransaction(req.Title, req.Value, req.Type, category)
	if err := s.repo.SaveTransactions(ctx, []core.Transaction{tx}); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogTransactionCreated(ctx,
		tx.ID.String(), tx.Title, tx.Type.String(), tx.Value.String(), category.Title)

	return tx, nil
}

// Balance returns the current aggregate over the whole ledger.
func (s *LedgerService) Balance(ctx context.Context) (core.Balance, error) {
	b, err := s.repo.TransactionAggregate(ctx)
	if err != nil {
		return core.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// ListTransactions returns every transaction together with the balance.
func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, core.Balance, error) {
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, core.Balance{}, fmt.Errorf("list transactions: %w", err)
	}
	return txs, core.ComputeBalance(txs), nil
}
