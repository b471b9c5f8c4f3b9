// internal/api/handler/transaction.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"cardvault/internal/api/types"
	"cardvault/internal/domain"
	"cardvault/internal/repository"
	"cardvault/internal/service"
	"cardvault/internal/util"
)

// TransactionHandler handles HTTP requests for transfers and transaction
// queries.
type TransactionHandler struct {
	transfers service.TransferService
	sweeper   *service.Sweeper
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transfers service.TransferService, sweeper *service.Sweeper, validate *validator.Validate, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transfers: transfers, sweeper: sweeper, validate: validate, logger: logger}
}

// TransferRequest represents the request body for a card-to-card transfer.
type TransferRequest struct {
	FromCardID  int64           `json:"from_card_id" validate:"required,gt=0"`
	ToCardID    int64           `json:"to_card_id" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description *string         `json:"description"`
}

// Transfer handles POST /transfers.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	actor, _ := ActorFromContext(r.Context())

	transaction, err := h.transfers.Transfer(r.Context(), req.FromCardID, req.ToCardID, req.Amount, req.Description, actor)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusCreated, transaction)
}

// Cancel handles POST /transactions/{transactionID}/cancel.
func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "transactionID")
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	actor, _ := ActorFromContext(r.Context())

	transaction, err := h.transfers.Cancel(r.Context(), id, actor)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, transaction)
}

// Get handles GET /transactions/{transactionID}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "transactionID")
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	actor, _ := ActorFromContext(r.Context())

	transaction, err := h.transfers.GetTransaction(r.Context(), id, actor)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, transaction)
}

// Search handles GET /transactions. Optional conjunctive filters: type,
// status, from/to (RFC 3339), username (admin only), plus pagination.
func (h *TransactionHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	limit, offset := parsePagination(r)

	var filter repository.TransactionFilter
	if raw := r.URL.Query().Get("type"); raw != "" {
		txType := domain.TransactionType(raw)
		filter.Type = &txType
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.TransactionStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, h.logger, util.ErrInvalidInput)
			return
		}
		filter.FromDate = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, h.logger, util.ErrInvalidInput)
			return
		}
		filter.ToDate = &parsed
	}
	if raw := r.URL.Query().Get("username"); raw != "" {
		filter.Username = &raw
	}

	transactions, totalCount, err := h.transfers.SearchTransactions(r.Context(), actor, filter, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[domain.Transaction]{
		Data:       transactions,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

// SweepExpiry handles POST /admin/sweeps/expiry, running the card expiry
// sweep immediately.
func (h *TransactionHandler) SweepExpiry(w http.ResponseWriter, r *http.Request) {
	swept, err := h.sweeper.RunExpiry(r.Context())
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]int{"expired": swept})
}

// SweepStale handles POST /admin/sweeps/stale, failing stale PENDING
// transactions immediately.
func (h *TransactionHandler) SweepStale(w http.ResponseWriter, r *http.Request) {
	swept, err := h.sweeper.RunStalePending(r.Context())
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]int{"failed": swept})
}
