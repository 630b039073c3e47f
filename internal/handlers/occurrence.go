package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cleancity-backend/internal/middleware"
	"cleancity-backend/internal/models"
	"cleancity-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// OccurrenceHandler handles occurrence HTTP requests
type OccurrenceHandler struct {
	occurrenceService *services.OccurrenceService
	wsHub             *services.WSHub
}

// NewOccurrenceHandler creates a new occurrence handler
func NewOccurrenceHandler(occurrenceService *services.OccurrenceService, wsHub *services.WSHub) *OccurrenceHandler {
	return &OccurrenceHandler{
		occurrenceService: occurrenceService,
		wsHub:             wsHub,
	}
}

// createOccurrenceRequest uses pointers for latitude/longitude so a
// missing coordinate is distinguishable from zero.
type createOccurrenceRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Address        *string  `json:"address"`
	AccelerometerX *float64 `json:"accelerometer_x"`
	AccelerometerY *float64 `json:"accelerometer_y"`
	AccelerometerZ *float64 `json:"accelerometer_z"`
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	Pressure       *float64 `json:"pressure"`
}

func (req *createOccurrenceRequest) toInput() *services.CreateOccurrenceInput {
	return &services.CreateOccurrenceInput{
		Title:          req.Title,
		Description:    req.Description,
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		Address:        req.Address,
		AccelerometerX: req.AccelerometerX,
		AccelerometerY: req.AccelerometerY,
		AccelerometerZ: req.AccelerometerZ,
		Temperature:    req.Temperature,
		Humidity:       req.Humidity,
		Pressure:       req.Pressure,
	}
}

// Create handles POST /api/occurrences
func (h *OccurrenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createOccurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.Title == "" || req.Description == "" || req.Latitude == nil || req.Longitude == nil {
		respondBadRequest(w, "Missing required fields: title, description, latitude, longitude")
		return
	}

	occurrence, err := h.occurrenceService.Create(r.Context(), userID, req.toInput())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create occurrence")
		respondError(w, err)
		return
	}

	log.Info().Str("occurrence_id", occurrence.ID).Str("user_id", userID).Msg("Occurrence created")
	h.wsHub.Broadcast(services.EventOccurrenceNew, occurrence)
	respondData(w, http.StatusCreated, occurrence)
}

// GetByID handles GET /api/occurrences/{id}
func (h *OccurrenceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.occurrenceService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, detail)
}

// List handles GET /api/occurrences
func (h *OccurrenceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := paginationParams(r)

	occurrences, total, err := h.occurrenceService.List(r.Context(), page, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    occurrences,
		Message: "Total: " + strconv.Itoa(total),
	})
}

// ListMine handles GET /api/occurrences/my-occurrences
func (h *OccurrenceHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, limit := paginationParams(r)

	occurrences, total, err := h.occurrenceService.ListByUser(r.Context(), userID, page, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    occurrences,
		Message: "Total: " + strconv.Itoa(total),
	})
}

// ListByBounds handles GET /api/occurrences/bounds
func (h *OccurrenceHandler) ListByBounds(w http.ResponseWriter, r *http.Request) {
	minLat, err1 := parseFloatParam(r, "minLat")
	maxLat, err2 := parseFloatParam(r, "maxLat")
	minLon, err3 := parseFloatParam(r, "minLon")
	maxLon, err4 := parseFloatParam(r, "maxLon")
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		respondBadRequest(w, "Missing or invalid bounds: minLat, maxLat, minLon, maxLon")
		return
	}

	occurrences, err := h.occurrenceService.ListByBounds(r.Context(), minLat, maxLat, minLon, maxLon)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, occurrences)
}

// Update handles PUT /api/occurrences/{id}
func (h *OccurrenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "id")

	var req services.UpdateOccurrenceInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	occurrence, err := h.occurrenceService.Update(r.Context(), id, userID, &req)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", id).Str("user_id", userID).Msg("Failed to update occurrence")
		respondError(w, err)
		return
	}

	h.wsHub.Broadcast(services.EventOccurrenceChanged, occurrence)
	respondData(w, http.StatusOK, occurrence)
}

// UpdateStatus handles PATCH /api/occurrences/{id}/status
func (h *OccurrenceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status models.OccurrenceStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	occurrence, err := h.occurrenceService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondError(w, err)
		return
	}

	h.wsHub.Broadcast(services.EventOccurrenceChanged, occurrence)
	respondData(w, http.StatusOK, occurrence)
}

// Delete handles DELETE /api/occurrences/{id}
func (h *OccurrenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.occurrenceService.Delete(r.Context(), id, userID); err != nil {
		log.Error().Err(err).Str("occurrence_id", id).Str("user_id", userID).Msg("Failed to delete occurrence")
		respondError(w, err)
		return
	}

	log.Info().Str("occurrence_id", id).Str("user_id", userID).Msg("Occurrence deleted")
	h.wsHub.Broadcast(services.EventOccurrenceRemoved, map[string]string{"id": id})
	respondMessage(w, "Occurrence deleted successfully")
}

// Stats handles GET /api/occurrences/stats
func (h *OccurrenceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.occurrenceService.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

func paginationParams(r *http.Request) (page, limit int) {
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			page = v
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			limit = v
		}
	}
	return page, limit
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	return strconv.ParseFloat(r.URL.Query().Get(name), 64)
}
