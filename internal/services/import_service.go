package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ledger/internal/core"
	"ledger/internal/csvparse"
	applog "ledger/internal/log"
)

// ImportReport is the outcome of a CSV import. Rejected lists the rows
// that were skipped for missing fields; it is informational only.
type ImportReport struct {
	Transactions []core.Transaction
	Rejected     []csvparse.Rejected
}

var errNoFileOpener = errors.New("file imports not configured")

// ImportFromFile imports the CSV at path and returns the created
// transactions in file order.
func (s *LedgerService) ImportFromFile(ctx context.Context, path string) ([]core.Transaction, error) {
	report, err := s.Import(ctx, path)
	if err != nil {
		return nil, err
	}
	return report.Transactions, nil
}

// Import is ImportFromFile that also reports skipped rows.
func (s *LedgerService) Import(ctx context.Context, path string) (*ImportReport, error) {
	if s.files == nil {
		return nil, errNoFileOpener
	}

	stream, err := s.files.OpenReadStream(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer stream.Close()

	report, err := s.ImportReader(ctx, stream)
	if err != nil {
		return nil, err
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogImportCompleted(ctx,
		path, len(report.Transactions), len(report.Rejected))

	return report, nil
}

// ImportReader runs the import over an already open CSV stream.
//
// The stream is drained completely before anything is written. Categories
// are then resolved in one batch and all transactions are saved in one
// batch. The balance rule of CreateTransaction is not applied.
func (s *LedgerService) ImportReader(ctx context.Context, r io.Reader) (*ImportReport, error) {
	batch, err := csvparse.Drain(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("parse import: %w", err)
	}

	for _, rej := range batch.Rejected {
		slog.DebugContext(ctx, "Import row skipped", "line", rej.Line, "reason", rej.Reason)
	}

	report := &ImportReport{Rejected: batch.Rejected}
	if len(batch.Rows) == 0 {
		return report, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	categories, err := s.categories.ResolveMany(ctx, batch.Categories)
	if err != nil {
		return nil, fmt.Errorf("resolve categories: %w", err)
	}

	txs := make([]core.Transaction, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		tx, err := buildTransaction(row, categories)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.SaveTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}

	report.Transactions = txs
	return report, nil
}

func buildTransaction(row csvparse.Row, categories map[string]core.Category) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(row.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("line %d: %w: %q", row.Line, err, row.Type)
	}
	value, err := core.ParseValue(row.Value)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("line %d: %w: %q", row.Line, err, row.Value)
	}
	category, ok := categories[row.Category]
	if !ok {
		return core.Transaction{}, fmt.Errorf("line %d: unresolved category %q", row.Line, row.Category)
	}
	return core.NewTransaction(row.Title, value, typ, category), nil
}
