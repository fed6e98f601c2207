package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"inkwellAPI/internal/types/currency"
	"inkwellAPI/middleware"
	"inkwellAPI/services"

	"github.com/google/uuid"
)

type CurrencyHandler struct {
	inkDropService *services.InkDropService
}

func NewCurrencyHandler(inkDropService *services.InkDropService) *CurrencyHandler {
	return &CurrencyHandler{
		inkDropService: inkDropService,
	}
}

func (h *CurrencyHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	balance, err := h.inkDropService.GetBalance(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, currency.BalanceResponse{Balance: balance})
}

func (h *CurrencyHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	transactions, err := h.inkDropService.GetTransactions(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, currency.TransactionsResponse{Transactions: transactions})
}

func (h *CurrencyHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req currency.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	balance, err := h.inkDropService.Purchase(ctx, clerkID, req.Amount)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, currency.BalanceResponse{Balance: balance})
}

func (h *CurrencyHandler) Tip(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req currency.TipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}
	if req.RecipientUserID == "" {
		respondWithError(w, http.StatusBadRequest, "Recipient user ID is required")
		return
	}

	result, err := h.inkDropService.Tip(ctx, clerkID, req.RecipientUserID, req.Amount)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Grant credits ink drops from server-side flows like referral rewards.
// It sits behind basic auth, not Clerk auth.
func (h *CurrencyHandler) Grant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req currency.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount == 0 {
		respondWithError(w, http.StatusBadRequest, "Amount must be non-zero")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	source := currency.TransactionSource(req.Source)
	if source == "" {
		source = currency.SourceAdminGrant
	}

	balance, err := h.inkDropService.AddInkDrops(ctx, userID, req.Amount, source)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, currency.BalanceResponse{Balance: balance})
}
