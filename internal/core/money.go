// Package core provides the ledger domain model and money arithmetic.
//
// This file contains value parsing and the balance calculation over a set
// of transactions.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseValue converts a textual amount to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and keeps
// the full precision of the input. Zero is a valid value; negative values
// and anything that is not a plain decimal number are rejected.
//
// At most one separator is allowed, so grouped amounts such as 1.000,50 are
// rejected. A comma followed by exactly three digits reads as a thousands
// separator and is rejected too; write 1000 or 1,0 instead.
//
// Examples:
//
//	ParseValue("12.34") -> 12.34, nil
//	ParseValue("12,34") -> 12.34, nil
//	ParseValue("1,000") -> 0, ErrInvalidValue
//	ParseValue("-1")    -> 0, ErrNegativeValue
func ParseValue(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidValue
	}
	if strings.Count(s, ",")+strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidValue
	}
	if i := strings.IndexByte(s, ','); i >= 0 && len(s)-i-1 == 3 {
		return decimal.Zero, ErrInvalidValue
	}
	s = strings.Replace(s, ",", ".", 1)
	if strings.ContainsAny(s, "eE") {
		// decimal.NewFromString accepts exponents; amounts never use them
		return decimal.Zero, ErrInvalidValue
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidValue
	}
	if v.IsNegative() {
		return decimal.Zero, ErrNegativeValue
	}
	return v, nil
}

// ComputeBalance sums income and outcome over txs. Unknown types are ignored.
func ComputeBalance(txs []Transaction) Balance {
	income, outcome := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			income = income.Add(tx.Value)
		case Outcome:
			outcome = outcome.Add(tx.Value)
		}
	}
	return Balance{
		Income:  income,
		Outcome: outcome,
		Total:   income.Sub(outcome),
	}
}

// CanAfford reports whether an outcome of value keeps the total non-negative.
func (b Balance) CanAfford(value decimal.Decimal) bool {
	return !value.GreaterThan(b.Total)
}
