package http

import (
	"net/http"

	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/plan"

	"go.uber.org/zap"
)

// PlansHandler serves the public subscription plan catalog.
type PlansHandler struct {
	plans *plan.Cache
	log   *zap.Logger
}

func NewPlansHandler(plans *plan.Cache, log *zap.Logger) *PlansHandler {
	return &PlansHandler{plans: plans, log: log}
}

type planResponse struct {
	Tier                   string `json:"tier"`
	DisplayName            string `json:"displayName"`
	LinksPerMonth          int64  `json:"linksPerMonth"`
	APIRequestsPerMonth    int64  `json:"apiRequestsPerMonth"`
	CustomDomains          int64  `json:"customDomains"`
	AnalyticsRetentionDays int64  `json:"analyticsRetentionDays"`
	CustomCodes            bool   `json:"customCodes"`
}

// ListPlans serves GET /api/plans.
func (h *PlansHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := h.plans.All()
	out := make([]planResponse, 0, len(all))
	for _, p := range all {
		out = append(out, toPlanResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": out})
}

func toPlanResponse(p *domain.Plan) planResponse {
	return planResponse{
		Tier:                   p.Tier,
		DisplayName:            p.DisplayName,
		LinksPerMonth:          p.LinksPerMonth,
		APIRequestsPerMonth:    p.APIRequestsPerMonth,
		CustomDomains:          p.CustomDomains,
		AnalyticsRetentionDays: p.AnalyticsRetentionDays,
		CustomCodes:            p.CustomCodes,
	}
}
