// Package csvparse drains a transactions CSV stream into memory.
//
// The expected layout is a header line followed by rows of
// title,type,value,category. Values stay as trimmed text here; numeric
// conversion happens when transactions are built.
package csvparse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is an accepted data row.
type Row struct {
	Line     int
	Title    string
	Type     string
	Value    string
	Category string
}

// Rejected describes a data row that was skipped.
type Rejected struct {
	Line   int
	Reason string
}

// Batch is the in-memory result of draining a stream.
type Batch struct {
	Rows []Row
	// Categories holds the category of every accepted row, duplicates included.
	Categories []string
	Rejected   []Rejected
}

// Drain reads r to the end before returning. The first record is the
// header and is skipped. Rows missing a title, type or value are recorded
// in Rejected and otherwise ignored; an empty category is kept as "".
func Drain(ctx context.Context, r io.Reader) (*Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	batch := &Batch{}
	header := true
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if header {
			header = false
			continue
		}

		line, _ := reader.FieldPos(0)
		row := Row{
			Line:     line,
			Title:    field(record, 0),
			Type:     field(record, 1),
			Value:    field(record, 2),
			Category: field(record, 3),
		}

		if reason := rejectReason(row); reason != "" {
			batch.Rejected = append(batch.Rejected, Rejected{Line: line, Reason: reason})
			continue
		}
		batch.Rows = append(batch.Rows, row)
		batch.Categories = append(batch.Categories, row.Category)
	}

	return batch, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func rejectReason(row Row) string {
	switch {
	case row.Title == "":
		return "missing title"
	case row.Type == "":
		return "missing type"
	case row.Value == "":
		return "missing value"
	default:
		return ""
	}
}
