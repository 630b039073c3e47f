package handlers

import (
	"encoding/json"
	"net/http"

	"cleancity-backend/internal/middleware"
	"cleancity-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles signup, login and profile HTTP requests
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignupRequest is the request body for POST /api/auth/signup
type SignupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		respondBadRequest(w, "Missing required fields: full_name, email, password")
		return
	}

	result, err := h.authService.Signup(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Signup failed")
		respondError(w, err)
		return
	}

	log.Info().Str("user_id", result.User.ID).Msg("User signed up")
	respondData(w, http.StatusCreated, result)
}

// LoginRequest is the request body for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondBadRequest(w, "Missing required fields: email, password")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("user_id", result.User.ID).Msg("User logged in")
	respondData(w, http.StatusOK, result)
}

// GetProfile handles GET /api/auth/profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profile, err := h.authService.GetProfile(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, profile)
}

// UpdateProfileRequest is the request body for PUT /api/auth/profile
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Avatar   *string `json:"avatar"`
}

// UpdateProfile handles PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	profile, err := h.authService.UpdateProfile(r.Context(), userID, req.FullName, req.Avatar)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, profile)
}

// ChangePasswordRequest is the request body for POST /api/auth/change-password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondBadRequest(w, "Missing required fields: old_password, new_password")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Password changed")
	respondMessage(w, "Password changed successfully")
}
