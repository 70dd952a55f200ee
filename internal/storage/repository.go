package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/ledger"

	_ "modernc.org/sqlite"
)

// Fixed-width so that created_at orders lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// lookupChunkSize bounds the parameters of one IN (...) query.
const lookupChunkSize = 500

var _ ledger.Repository = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FindCategoriesByTitles implements ledger.CategoryRepository. Titles are
// looked up in chunks to stay under SQLite's bound parameter limit; the
// merged result is ordered by created_at, then insertion order.
func (r *SQLiteRepository) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	var found []storedCategory
	for start := 0; start < len(titles); start += lookupChunkSize {
		end := min(start+lookupChunkSize, len(titles))
		chunk, err := r.findCategoryChunk(ctx, titles[start:end])
		if err != nil {
			return nil, err
		}
		found = append(found, chunk...)
	}

	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].CreatedAt.Before(found[j].CreatedAt)
		}
		return found[i].rowid < found[j].rowid
	})

	out := make([]core.Category, len(found))
	for i, c := range found {
		out[i] = c.Category
	}
	return out, nil
}

type storedCategory struct {
	core.Category
	rowid int64
}

func (r *SQLiteRepository) findCategoryChunk(ctx context.Context, titles []string) ([]storedCategory, error) {
	args := make([]any, len(titles))
	for i, t := range titles {
		args[i] = t
	}
	query := `SELECT rowid, id, title, created_at FROM categories WHERE title IN (` +
		placeholders(len(titles)) + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories by title: %w", err)
	}
	defer rows.Close()

	var out []storedCategory
	for rows.Next() {
		var (
			rowid                int64
			id, title, createdAt string
		)
		if err := rows.Scan(&rowid, &id, &title, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c, err := categoryFromRow(id, title, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, storedCategory{Category: c, rowid: rowid})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// SaveCategories implements ledger.CategoryRepository
func (r *SQLiteRepository) SaveCategories(ctx context.Context, categories []core.Category) error {
	if len(categories) == 0 {
		return nil
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO categories (id, title, created_at) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert category: %w", err)
		}
		defer stmt.Close()

		for _, c := range categories {
			if _, err := stmt.ExecContext(ctx, c.ID.String(), c.Title, c.CreatedAt.UTC().Format(timeLayout)); err != nil {
				return fmt.Errorf("insert category %q: %w", c.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Categories saved to SQLite", "count", len(categories))
	return nil
}

// TransactionAggregate implements ledger.TransactionRepository.
// Values are stored as text, so the sums are done with decimal arithmetic
// rather than SQL SUM (which would go through float64).
func (r *SQLiteRepository) TransactionAggregate(ctx context.Context) (core.Balance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, value FROM transactions`)
	if err != nil {
		return core.Balance{}, fmt.Errorf("query transaction values: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var typ, value string
		if err := rows.Scan(&typ, &value); err != nil {
			return core.Balance{}, fmt.Errorf("scan transaction value: %w", err)
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return core.Balance{}, fmt.Errorf("parse stored value %q: %w", value, err)
		}
		txs = append(txs, core.Transaction{Type: core.TransactionType(typ), Value: v})
	}
	if err := rows.Err(); err != nil {
		return core.Balance{}, fmt.Errorf("iterate transaction values: %w", err)
	}
	return core.ComputeBalance(txs), nil
}

// SaveTransactions implements ledger.TransactionRepository. The batch is
// validated up front and written in a single SQL transaction.
func (r *SQLiteRepository) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions (id, title, value, type, category_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert transaction: %w", err)
		}
		defer stmt.Close()

		for _, t := range txs {
			_, err := stmt.ExecContext(ctx,
				t.ID.String(),
				t.Title,
				t.Value.String(),
				string(t.Type),
				t.CategoryID.String(),
				t.CreatedAt.UTC().Format(timeLayout))
			if err != nil {
				return fmt.Errorf("insert transaction %q: %w", t.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(txs))
	return nil
}

// ListTransactions implements ledger.TransactionRepository
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.value, t.type, t.created_at, c.id, c.title, c.created_at
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		ORDER BY t.created_at, t.rowid`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			id, title, value, typ, createdAt string
			catID, catTitle, catCreatedAt    string
		)
		if err := rows.Scan(&id, &title, &value, &typ, &createdAt, &catID, &catTitle, &catCreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		cat, err := categoryFromRow(catID, catTitle, catCreatedAt)
		if err != nil {
			return nil, err
		}
		txID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse transaction id %q: %w", id, err)
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("parse stored value %q: %w", value, err)
		}
		ts, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse transaction created_at %q: %w", createdAt, err)
		}
		out = append(out, core.Transaction{
			ID:         txID,
			Title:      title,
			Value:      v,
			Type:       core.TransactionType(typ),
			CategoryID: cat.ID,
			Category:   cat,
			CreatedAt:  ts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// CategoryCount returns the number of stored category rows.
func (r *SQLiteRepository) CategoryCount(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func categoryFromRow(id, title, createdAt string) (core.Category, error) {
	cid, err := uuid.Parse(id)
	if err != nil {
		return core.Category{}, fmt.Errorf("parse category id %q: %w", id, err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return core.Category{}, fmt.Errorf("parse category created_at %q: %w", createdAt, err)
	}
	return core.Category{ID: cid, Title: title, CreatedAt: ts}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
