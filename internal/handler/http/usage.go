package http

import (
	"errors"
	"net/http"

	"Lynx-Backend/internal/auth"
	"Lynx-Backend/internal/repository"
	"Lynx-Backend/internal/service"

	"go.uber.org/zap"
)

// UsageHandler reports the caller's consumption against plan limits.
type UsageHandler struct {
	meter *service.UsageMeter
	log   *zap.Logger
}

func NewUsageHandler(meter *service.UsageMeter, log *zap.Logger) *UsageHandler {
	return &UsageHandler{meter: meter, log: log}
}

// GetUsage serves GET /api/usage for the current month.
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, _ := auth.GetUserIDFromContext(r.Context())

	record, userPlan, err := h.meter.Usage(r.Context(), userID)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		writeError(w, "Unknown user", http.StatusUnauthorized)
		return
	case err != nil:
		h.log.Error("failed to load usage", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"month": record.Month,
		"tier":  userPlan.Tier,
		"usage": map[string]int64{
			"linksCreated":    record.LinksCreated,
			"apiRequests":     record.APIRequests,
			"customDomains":   record.CustomDomainsUsed,
			"analyticsEvents": record.AnalyticsEvents,
		},
		"limits": map[string]int64{
			"linksPerMonth":       userPlan.LinksPerMonth,
			"apiRequestsPerMonth": userPlan.APIRequestsPerMonth,
			"customDomains":       userPlan.CustomDomains,
		},
	})
}
