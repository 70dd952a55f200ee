package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/services"
)

type fakeImporter struct {
	report *services.ImportReport
	err    error
	calls  []string
}

func (f *fakeImporter) Import(_ context.Context, path string) (*services.ImportReport, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type fakeRemover struct{ removed []string }

func (f *fakeRemover) Remove(_ context.Context, path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func TestHandleImportMessage(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantErr     bool
		wantRemoved bool
	}{
		{"success", nil, false, true},
		{"invalid value is dropped", fmt.Errorf("line 2: %w", core.ErrInvalidValue), false, true},
		{"invalid type is dropped", fmt.Errorf("line 2: %w", core.ErrInvalidType), false, true},
		{"missing file is dropped", fmt.Errorf("open import file: %w", os.ErrNotExist), false, true},
		{"storage failure is retried", errors.New("database is locked"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := &fakeImporter{report: &services.ImportReport{}, err: tt.err}
			rm := &fakeRemover{}
			w := NewImportWorker(imp, rm, nil)

			msg := amqp.NewImportRequestMessage("abc.csv", "bank.csv")
			err := w.HandleImportMessage(context.Background(), msg)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, []string{"abc.csv"}, imp.calls)
			if tt.wantRemoved {
				assert.Equal(t, []string{"abc.csv"}, rm.removed)
			} else {
				assert.Empty(t, rm.removed)
			}
		})
	}
}

func TestHandleImportMessage_RetryFailureRemovesUpload(t *testing.T) {
	imp := &fakeImporter{err: errors.New("database is locked")}
	rm := &fakeRemover{}
	w := NewImportWorker(imp, rm, nil)

	msg := amqp.NewImportRequestMessage("abc.csv", "bank.csv")
	require.Error(t, w.HandleImportMessage(context.Background(), msg))
	assert.Empty(t, rm.removed, "first attempt keeps the file for the retry")

	msg.Redelivered = true
	require.Error(t, w.HandleImportMessage(context.Background(), msg))
	assert.Equal(t, []string{"abc.csv"}, rm.removed)
	assert.Len(t, imp.calls, 2)
}
