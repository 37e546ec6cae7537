package http

import (
	"context"
	"net/http"
	"time"

	"Lynx-Backend/internal/repository"

	"go.uber.org/zap"
)

// pinger is implemented by storages that can probe their backing store.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and storage readiness.
type HealthHandler struct {
	storage repository.Storage
	log     *zap.Logger
}

func NewHealthHandler(storage repository.Storage, log *zap.Logger) *HealthHandler {
	return &HealthHandler{storage: storage, log: log}
}

// Health serves GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if p, ok := h.storage.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.log.Error("storage health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
