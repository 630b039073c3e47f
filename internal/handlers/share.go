package handlers

import (
	"encoding/json"
	"net/http"

	"cleancity-backend/internal/middleware"
	"cleancity-backend/internal/models"
	"cleancity-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ShareHandler handles share HTTP requests
type ShareHandler struct {
	shareService *services.ShareService
	wsHub        *services.WSHub
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService *services.ShareService, wsHub *services.WSHub) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		wsHub:        wsHub,
	}
}

// ShareRequest is the request body for POST /api/shares
type ShareRequest struct {
	OccurrenceID string                 `json:"occurrence_id"`
	UserEmail    string                 `json:"user_email"`
	Permission   models.SharePermission `json:"permission"`
}

// Share handles POST /api/shares
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.OccurrenceID == "" || req.UserEmail == "" || req.Permission == "" {
		respondBadRequest(w, "Missing required fields: occurrence_id, user_email, permission")
		return
	}

	share, err := h.shareService.Share(r.Context(), userID, req.OccurrenceID, req.UserEmail, req.Permission)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("occurrence_id", req.OccurrenceID).
			Msg("Failed to share occurrence")
		respondError(w, err)
		return
	}

	log.Info().
		Str("share_id", share.ID).
		Str("occurrence_id", share.OccurrenceID).
		Str("shared_with_id", share.SharedWithID).
		Msg("Occurrence shared")

	h.wsHub.SendToUser(share.SharedWithID, services.EventShareReceived, share)
	respondData(w, http.StatusCreated, share)
}

// SharedWithMe handles GET /api/shares/shared-with-me
func (h *ShareHandler) SharedWithMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	shares, err := h.shareService.SharedWithMe(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, shares)
}

// SharedByMe handles GET /api/shares/shared-by-me
func (h *ShareHandler) SharedByMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	shares, err := h.shareService.SharedByMe(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, shares)
}

// Revoke handles DELETE /api/shares/{shareId}
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	shareID := chi.URLParam(r, "shareId")

	if err := h.shareService.Revoke(r.Context(), shareID, userID); err != nil {
		log.Error().Err(err).Str("share_id", shareID).Str("user_id", userID).Msg("Failed to revoke share")
		respondError(w, err)
		return
	}

	log.Info().Str("share_id", shareID).Str("user_id", userID).Msg("Share revoked")
	respondMessage(w, "Share revoked successfully")
}
