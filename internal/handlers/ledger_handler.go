package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skillswap/backend/internal/ledger"
	"github.com/skillswap/backend/internal/middleware"
	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/services"
)

// LedgerHandler serves /api/v1/credits endpoints. Bodies are schema-checked
// by middleware before they reach it.
type LedgerHandler struct {
	Ledger ledger.Service
	Logger *slog.Logger
}

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
	services.Card
}

type spendRequest struct {
	ToUserID    uuid.UUID       `json:"to_user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	SkillName   *string         `json:"skill_name,omitempty"`
}

type balanceResponse struct {
	UserID  uuid.UUID       `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// GetBalance handles GET /api/v1/credits/balance.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	bal, err := h.Ledger.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UserID: userID, Balance: bal})
}

// GetTransactions handles GET /api/v1/credits/transactions?limit=.
func (h *LedgerHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := h.Ledger.GetTransactions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.LedgerTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": list})
}

// TopUp handles POST /api/v1/credits/topup. A declined card answers 402 with
// the failed transaction row and the gateway's reason.
func (h *LedgerHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	row, err := h.Ledger.TopUp(r.Context(), ledger.TopUpRequest{UserID: userID, Amount: req.Amount, Card: req.Card})
	if err != nil {
		var declined *models.PaymentDeclinedError
		if errors.As(err, &declined) {
			writeJSON(w, http.StatusPaymentRequired, errorResponse{
				Error:       models.ErrPaymentDeclined.Error(),
				Reason:      declined.Reason,
				Transaction: row,
			})
			return
		}
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": row})
}

// Spend handles POST /api/v1/credits/spend from the caller to to_user_id.
func (h *LedgerHandler) Spend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	rows, err := h.Ledger.Spend(r.Context(), ledger.SpendRequest{
		FromUserID:  userID,
		ToUserID:    req.ToUserID,
		Amount:      req.Amount,
		Description: req.Description,
		SkillName:   req.SkillName,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": rows})
}
