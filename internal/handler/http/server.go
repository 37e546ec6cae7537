package http

import (
	"Lynx-Backend/internal/auth"
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/metrics"
	"Lynx-Backend/internal/plan"
	"Lynx-Backend/internal/repository"
	"Lynx-Backend/internal/service"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server wires the HTTP handlers and middleware.
type Server struct {
	linksHandler    *LinksHandler
	redirectHandler *RedirectHandler
	usageHandler    *UsageHandler
	plansHandler    *PlansHandler
	healthHandler   *HealthHandler
	authMiddleware  *auth.Middleware
	meter           *service.UsageMeter
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
	log             *zap.Logger
}

// NewServer creates the HTTP server facade.
func NewServer(
	storage repository.Storage,
	shortener *service.Shortener,
	resolver *service.Resolver,
	meter *service.UsageMeter,
	plans *plan.Cache,
	jwtService *auth.JWTService,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	log *zap.Logger,
	baseURL string,
) *Server {
	return &Server{
		linksHandler:    NewLinksHandler(shortener, log, baseURL),
		redirectHandler: NewRedirectHandler(resolver, log),
		usageHandler:    NewUsageHandler(meter, log),
		plansHandler:    NewPlansHandler(plans, log),
		healthHandler:   NewHealthHandler(storage, log),
		authMiddleware:  auth.NewMiddleware(jwtService, log),
		meter:           meter,
		metrics:         m,
		gatherer:        gatherer,
		log:             log,
	}
}

// SetupRoutes builds the route table.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.healthHandler.Health)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Plan listing is public reference data.
	mux.HandleFunc("/api/plans", s.metrics.Middleware("/api/plans", s.withCORS(s.plansHandler.ListPlans)))

	// Authenticated API; every call consumes one api_request reservation.
	mux.HandleFunc("/api/links", s.api("/api/links", s.linksHandler.HandleCollection))
	mux.HandleFunc("/api/links/", s.api("/api/links/{code}", s.linksHandler.HandleItem))
	mux.HandleFunc("/api/usage", s.api("/api/usage", s.usageHandler.GetUsage))

	// Redirect catch-all must be registered last.
	mux.HandleFunc("/", s.metrics.Middleware("/{shortCode}", s.redirectHandler.HandleRedirect))

	return mux
}

// api wraps an authenticated API handler with CORS, auth, API quota
// metering and request metrics.
func (s *Server) api(route string, handler http.HandlerFunc) http.HandlerFunc {
	return s.metrics.Middleware(route, s.withCORS(s.authMiddleware.RequireAuth(s.meterAPIRequest(handler))))
}

func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(handler)
}

// meterAPIRequest reserves one api_request unit before the handler runs.
// The reservation is atomic, so bursts at the monthly ceiling admit exactly
// the remaining budget.
func (s *Server) meterAPIRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		check, err := s.meter.TryReserve(r.Context(), userID, domain.ActionAPIRequest)
		if err != nil {
			s.log.Error("failed to meter api request", zap.Int64("user_id", userID), zap.Error(err))
			writeError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !check.Allowed {
			writeLimitExceeded(w, http.StatusTooManyRequests, &service.LimitExceededError{
				Action:  domain.ActionAPIRequest,
				Current: check.Current,
				Limit:   check.Limit,
			})
			return
		}

		next.ServeHTTP(w, r)
	}
}
