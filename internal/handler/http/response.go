package http

import (
	"encoding/json"
	"net/http"

	"Lynx-Backend/internal/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Current *int64 `json:"current,omitempty"`
	Limit   *int64 `json:"limit,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeLimitExceeded(w http.ResponseWriter, status int, limitErr *service.LimitExceededError) {
	current, limit := limitErr.Current, limitErr.Limit
	writeJSON(w, status, errorResponse{
		Error:   limitErr.Error(),
		Current: &current,
		Limit:   &limit,
	})
}
