package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"textile-backend/internal/models"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes {"error": msg} with the status mapped from err
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[API] internal error: %v", err)
		msg = "Internal server error"
	}
	JSON(w, status, map[string]string{"error": msg})
}

// BadRequest is Error for malformed input that never reached a service
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrLotClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
