// internal/api/handler/card.go
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

// CardHandler handles HTTP requests for card operations.
type CardHandler struct {
	cards     service.CardService
	transfers service.TransferService
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards service.CardService, transfers service.TransferService, validate *validator.Validate, logger *slog.Logger) *CardHandler {
	return &CardHandler{cards: cards, transfers: transfers, validate: validate, logger: logger}
}

// CreateCardRequest represents the request body for card issuance.
type CreateCardRequest struct {
	Number     string    `json:"number" validate:"required,len=16,numeric"`
	Holder     string    `json:"holder" validate:"required"`
	ExpiryDate time.Time `json:"expiry_date" validate:"required"`
	OwnerID    int64     `json:"owner_id" validate:"required,gt=0"`
}

// Create handles POST /admin/cards.
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	card, err := h.cards.IssueCard(r.Context(), req.Number, req.Holder, req.ExpiryDate, req.OwnerID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusCreated, card)
}

// Get handles GET /cards/{cardID}.
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "cardID")
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	actor, _ := ActorFromContext(r.Context())

	card, err := h.cards.GetCard(r.Context(), id, actor)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, card)
}

// LookupRequest represents the request body for lookup by number. The number
// travels in the body so it never appears in URLs or access logs.
type LookupRequest struct {
	Number string `json:"number" validate:"required,len=16,numeric"`
}

// Lookup handles POST /cards/lookup.
func (h *CardHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	actor, _ := ActorFromContext(r.Context())

	card, err := h.cards.GetCardByNumber(r.Context(), req.Number, actor)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, card)
}

// Search handles GET /cards. Optional conjunctive filters: status, holder,
// owner (admin only), plus pagination.
func (h *CardHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	limit, offset := parsePagination(r)

	var filter repository.CardFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.CardStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("holder"); raw != "" {
		filter.Holder = &raw
	}
	if raw := r.URL.Query().Get("owner"); raw != "" {
		filter.OwnerUsername = &raw
	}

	cards, totalCount, err := h.cards.SearchCards(r.Context(), actor, filter, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[service.CardView]{
		Data:       cards,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

// Block handles POST /cards/{cardID}/block.
func (h *CardHandler) Block(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "cardID")
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	actor, _ := ActorFromContext(r.Context())

	card, err := h.cards.Block(r.Context(), id, actor)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, card)
}

// Activate handles POST /admin/cards/{cardID}/activate.
func (h *CardHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "cardID")
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	card, err := h.cards.Activate(r.Context(), id)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, card)
}

// Delete handles DELETE /admin/cards/{cardID}.
func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "cardID")
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	if err := h.cards.Delete(r.Context(), id); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustRequest represents the request body for deposit and withdraw.
type AdjustRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description *string         `json:"description"`
}

// Deposit handles POST /admin/cards/{cardID}/deposit.
func (h *CardHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, true)
}

// Withdraw handles POST /admin/cards/{cardID}/withdraw.
func (h *CardHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, false)
}

func (h *CardHandler) adjust(w http.ResponseWriter, r *http.Request, deposit bool) {
	id, err := pathID(r, "cardID")
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	actor, _ := ActorFromContext(r.Context())

	var transaction *domain.Transaction
	if deposit {
		transaction, err = h.transfers.Deposit(r.Context(), id, req.Amount, req.Description, actor)
	} else {
		transaction, err = h.transfers.Withdraw(r.Context(), id, req.Amount, req.Description, actor)
	}
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, transaction)
}
