package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

const maxJSONBody = 64 << 10

type createTransactionBody struct {
	Title string `json:"title"`
	// Value accepts a JSON number or a string such as "12,34".
	Value    json.RawMessage `json:"value"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
}

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type transactionResponse struct {
	ID         uuid.UUID        `json:"id"`
	Title      string           `json:"title"`
	Value      decimal.Decimal  `json:"value"`
	Type       string           `json:"type"`
	CategoryID uuid.UUID        `json:"category_id"`
	Category   categoryResponse `json:"category"`
	CreatedAt  time.Time        `json:"created_at"`
}

type balanceResponse struct {
	Income  decimal.Decimal `json:"income"`
	Outcome decimal.Decimal `json:"outcome"`
	Total   decimal.Decimal `json:"total"`
}

type listResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Balance      balanceResponse       `json:"balance"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		Title:      tx.Title,
		Value:      tx.Value,
		Type:       tx.Type.String(),
		CategoryID: tx.CategoryID,
		Category: categoryResponse{
			ID:        tx.Category.ID,
			Title:     tx.Category.Title,
			CreatedAt: tx.Category.CreatedAt,
		},
		CreatedAt: tx.CreatedAt,
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return out
}

func toBalanceResponse(b core.Balance) balanceResponse {
	return balanceResponse{Income: b.Income, Outcome: b.Outcome, Total: b.Total}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	case http.MethodGet:
		s.handleListTransactions(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	var body createTransactionBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := parseCreateRequest(body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.ledger.CreateTransaction(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			applog.NewStructuredLogger(logger).LogError(ctx, "Create transaction failed", err, applog.OpCreate,
				applog.NewFields().WithCategory(req.Category))
			WriteError(w, status, "internal error")
			return
		}
		WriteError(w, status, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func parseCreateRequest(body createTransactionBody) (services.CreateTransactionRequest, error) {
	typ, err := core.ParseTransactionType(strings.TrimSpace(body.Type))
	if err != nil {
		return services.CreateTransactionRequest{}, err
	}

	raw := bytes.TrimSpace(body.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return services.CreateTransactionRequest{}, core.ErrInvalidValue
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return services.CreateTransactionRequest{}, core.ErrInvalidValue
		}
	}
	value, err := core.ParseValue(text)
	if err != nil {
		return services.CreateTransactionRequest{}, err
	}

	return services.CreateTransactionRequest{
		Title:    sanitizeInput(body.Title),
		Value:    value,
		Type:     typ,
		Category: sanitizeInput(body.Category),
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, balance, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "List transactions failed", err, applog.OpList, nil)
		WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	WriteJSON(w, http.StatusOK, listResponse{
		Transactions: toTransactionResponses(txs),
		Balance:      toBalanceResponse(balance),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	balance, err := s.ledger.Balance(r.Context())
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Balance failed", err, applog.OpBalance, nil)
		WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	WriteJSON(w, http.StatusOK, toBalanceResponse(balance))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInsufficientBalance),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidValue),
		errors.Is(err, core.ErrNegativeValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
