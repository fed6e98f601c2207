package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"inkwellAPI/internal/types/challenge"
	"inkwellAPI/middleware"
	"inkwellAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.DailyChallengeService
}

func NewChallengeHandler(challengeService *services.DailyChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

func (h *ChallengeHandler) GetTodayChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	ch, err := h.challengeService.GetOrCreateTodayChallenge(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenge.NewTodayResponse(ch))
}

func (h *ChallengeHandler) TrackProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.TrackProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !challenge.IsValidType(req.ActionType) {
		respondWithError(w, http.StatusBadRequest, "Unknown action type")
		return
	}

	result, err := h.challengeService.TrackProgress(ctx, clerkID, req.ActionType)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
