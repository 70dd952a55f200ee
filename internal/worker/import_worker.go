package worker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

// Importer runs a CSV import from a stored file.
type Importer interface {
	Import(ctx context.Context, path string) (*services.ImportReport, error)
}

// FileRemover deletes stored uploads once they are no longer needed.
type FileRemover interface {
	Remove(ctx context.Context, path string) error
}

// ImportWorker consumes queued import requests.
type ImportWorker struct {
	importer Importer
	uploads  FileRemover
	logger   *applog.Logger
}

func NewImportWorker(importer Importer, uploads FileRemover, logger *applog.Logger) *ImportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ImportWorker{
		importer: importer,
		uploads:  uploads,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleImportMessage imports the file named by msg.
//
// Files that can never import (bad rows, missing file) are dropped and the
// message is acknowledged. Other failures are returned so the delivery is
// retried; the file is kept for that retry unless the message was already
// redelivered, in which case it will not come back.
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.ImportRequestMessage) error {
	logger := w.logger.With(applog.FieldMessageID, msg.ID, applog.FieldFile, msg.Path)
	ctx = applog.NewContext(ctx, logger)

	done := logger.Operation(ctx, applog.OpImport)
	report, err := w.importer.Import(ctx, msg.Path)
	if err != nil && !isPermanent(err) {
		done(err)
		if msg.Redelivered {
			logger.ErrorContext(ctx, "Giving up on import after retry", applog.FieldError, err)
			w.remove(ctx, logger, msg.Path)
		}
		return fmt.Errorf("import %s: %w", msg.Path, err)
	}
	done(nil)

	if err != nil {
		logger.ErrorContext(ctx, "Dropping import that cannot succeed", applog.FieldError, err)
	} else {
		logger.InfoContext(ctx, "Queued import processed",
			applog.FieldImported, len(report.Transactions),
			applog.FieldRejected, len(report.Rejected))
	}

	w.remove(ctx, logger, msg.Path)
	return nil
}

func (w *ImportWorker) remove(ctx context.Context, logger *applog.Logger, path string) {
	if err := w.uploads.Remove(ctx, path); err != nil {
		logger.WarnContext(ctx, "Failed to remove processed upload", applog.FieldError, err)
	}
}

func isPermanent(err error) bool {
	var parseErr *csv.ParseError
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, core.ErrInvalidValue) ||
		errors.Is(err, core.ErrNegativeValue) ||
		errors.Is(err, core.ErrInvalidType) ||
		errors.As(err, &parseErr)
}
