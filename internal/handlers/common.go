package handlers

import (
	"encoding/json"
	"net/http"

	"cleancity-backend/internal/apperr"
)

// Response is the uniform JSON envelope for every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// respondData sends a success envelope with a payload
func respondData(w http.ResponseWriter, statusCode int, data interface{}) {
	respondJSON(w, statusCode, Response{Success: true, Data: data})
}

// respondMessage sends a success envelope with only a message
func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

// respondError maps the error's kind to a status code and sends the error
// envelope
func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, apperr.Status(err), Response{Success: false, Error: apperr.Public(err)})
}

// respondBadRequest sends a 400 envelope for malformed input
func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: message})
}

// NotFoundHandler is the catch-all for unmatched routes.
func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusNotFound, Response{Success: false, Error: "Route not found"})
}
