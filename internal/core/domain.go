package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

type (
	TransactionType string

	Category struct {
		ID        uuid.UUID
		Title     string
		CreatedAt time.Time
	}

	Transaction struct {
		ID         uuid.UUID
		Title      string
		Value      decimal.Decimal
		Type       TransactionType
		CategoryID uuid.UUID
		Category   Category
		CreatedAt  time.Time
	}

	// Balance is derived from the whole ledger and never persisted.
	Balance struct {
		Income  decimal.Decimal
		Outcome decimal.Decimal
		Total   decimal.Decimal
	}
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrEmptyTitle          = errors.New("empty title")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidValue        = errors.New("invalid value")
	ErrNegativeValue       = errors.New("negative value")
	ErrMissingCategory     = errors.New("missing category reference")
)

// ParseTransactionType accepts exactly "income" or "outcome".
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Outcome:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// NewCategory builds an unsaved category.
func NewCategory(title string) Category {
	return Category{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
}

// NewCategories builds one unsaved category per title, in order.
func NewCategories(titles []string) []Category {
	out := make([]Category, len(titles))
	for i, title := range titles {
		out[i] = NewCategory(title)
	}
	return out
}

// NewTransaction builds an unsaved transaction linked to c.
func NewTransaction(title string, value decimal.Decimal, t TransactionType, c Category) Transaction {
	return Transaction{
		ID:         uuid.New(),
		Title:      title,
		Value:      value,
		Type:       t,
		CategoryID: c.ID,
		Category:   c,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate checks the fields every stored transaction must carry.
func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.Title) == "" {
		return ErrEmptyTitle
	}
	if !tx.Type.IsValid() {
		return ErrInvalidType
	}
	if tx.Value.IsNegative() {
		return ErrNegativeValue
	}
	if tx.CategoryID == uuid.Nil {
		return ErrMissingCategory
	}
	return nil
}
