package http

import (
	"encoding/csv"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"ledger/internal/csvparse"
	applog "ledger/internal/log"
)

// multipart overhead allowed on top of the file itself
const multipartSlack = 1 << 20

type rejectedResponse struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type importResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Rejected     []rejectedResponse    `json:"rejected"`
}

type queuedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func toRejectedResponses(rows []csvparse.Rejected) []rejectedResponse {
	out := make([]rejectedResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, rejectedResponse{Line: row.Line, Reason: row.Reason})
	}
	return out
}

// handleImport accepts a multipart upload in the "file" field. The file is
// imported inline, or queued for a worker when async=true.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentImport)
	structured := applog.NewStructuredLogger(logger)

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async && s.queue == nil {
		WriteError(w, http.StatusServiceUnavailable, "queued imports are not enabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartSlack)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		WriteError(w, http.StatusBadRequest, `missing multipart field "file"`)
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		WriteError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		WriteError(w, http.StatusBadRequest, "only .csv files are accepted")
		return
	}

	path, err := s.uploads.Save(ctx, name, file)
	if err != nil {
		structured.LogError(ctx, "Failed to store upload", err, applog.OpImport, applog.NewFields().WithFile(name))
		WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if async {
		msg, err := s.queue.EnqueueImport(ctx, path, name)
		if err != nil {
			_ = s.uploads.Remove(ctx, path)
			structured.LogError(ctx, "Failed to queue import", err, applog.OpEnqueue, applog.NewFields().WithFile(name))
			WriteError(w, http.StatusServiceUnavailable, "import queue unavailable")
			return
		}
		logger.InfoContext(ctx, "Import queued",
			applog.FieldOperation, applog.OpEnqueue,
			applog.FieldMessageID, msg.ID,
			applog.FieldFile, name)
		WriteJSON(w, http.StatusAccepted, queuedResponse{ID: msg.ID, Status: "queued"})
		return
	}

	defer func() {
		if err := s.uploads.Remove(ctx, path); err != nil {
			logger.WarnContext(ctx, "Failed to remove upload", applog.FieldError, err, applog.FieldFile, path)
		}
	}()

	report, err := s.ledger.Import(ctx, path)
	if err != nil {
		var parseErr *csv.ParseError
		switch {
		case errors.As(err, &parseErr):
			WriteError(w, http.StatusBadRequest, err.Error())
		case statusFor(err) == http.StatusBadRequest:
			WriteError(w, http.StatusBadRequest, err.Error())
		default:
			structured.LogError(ctx, "Import failed", err, applog.OpImport, applog.NewFields().WithFile(name))
			WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	WriteJSON(w, http.StatusCreated, importResponse{
		Transactions: toTransactionResponses(report.Transactions),
		Rejected:     toRejectedResponses(report.Rejected),
	})
}
