package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Lynx-Backend/internal/auth"
	"Lynx-Backend/internal/domain"
	"Lynx-Backend/internal/repository"
	"Lynx-Backend/internal/service"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// LinksHandler serves the authenticated link management API.
type LinksHandler struct {
	shortener *service.Shortener
	log       *zap.Logger
	baseURL   string
}

func NewLinksHandler(shortener *service.Shortener, log *zap.Logger, baseURL string) *LinksHandler {
	return &LinksHandler{
		shortener: shortener,
		log:       log,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

type createLinkRequest struct {
	OriginalURL  string     `json:"originalUrl"`
	CustomCode   string     `json:"customCode,omitempty"`
	CustomDomain string     `json:"customDomain,omitempty"`
	Title        string     `json:"title,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"shortCode"`
	OriginalURL string     `json:"originalUrl"`
	ShortURL    string     `json:"shortUrl"`
	Title       *string    `json:"title,omitempty"`
	IsActive    bool       `json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ClickCount  int64      `json:"clickCount"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (h *LinksHandler) toResponse(link *domain.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		ShortURL:    h.baseURL + "/" + link.ShortCode,
		Title:       link.Title,
		IsActive:    link.IsActive,
		ExpiresAt:   link.ExpiresAt,
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
	}
}

// HandleCollection dispatches /api/links.
func (h *LinksHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createLink(w, r)
	case http.MethodGet:
		h.listLinks(w, r)
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleItem dispatches /api/links/{code} and /api/links/{code}/stats.
func (h *LinksHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/links/")
	code, sub, _ := strings.Cut(rest, "/")
	if code == "" {
		writeError(w, "Short code required", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodDelete:
		h.deleteLink(w, r, code)
	case sub == "" && r.Method == http.MethodPut:
		h.updateLink(w, r, code)
	case sub == "stats" && r.Method == http.MethodGet:
		h.getStats(w, r, code)
	default:
		writeError(w, "Not found", http.StatusNotFound)
	}
}

func (h *LinksHandler) createLink(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	link, err := h.shortener.Create(r.Context(), service.CreateParams{
		OwnerID:      userID,
		OriginalURL:  req.OriginalURL,
		CustomCode:   req.CustomCode,
		CustomDomain: req.CustomDomain,
		Title:        req.Title,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		h.writeCreateError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(link))
}

func (h *LinksHandler) writeCreateError(w http.ResponseWriter, userID int64, err error) {
	var validationErr *service.ValidationError
	var limitErr *service.LimitExceededError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &limitErr):
		writeLimitExceeded(w, http.StatusForbidden, limitErr)
	case errors.Is(err, service.ErrFeatureUnavailable):
		writeError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, repository.ErrCodeExists):
		writeError(w, "Short code already taken", http.StatusConflict)
	case errors.Is(err, repository.ErrUserNotFound):
		writeError(w, "Unknown user", http.StatusUnauthorized)
	case errors.Is(err, service.ErrGenerationExhausted):
		h.log.Error("short code space exhausted", zap.Int64("user_id", userID))
		writeError(w, "Could not allocate a short code", http.StatusInternalServerError)
	default:
		h.log.Error("failed to create link", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *LinksHandler) listLinks(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	links, err := h.shortener.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error("failed to list links", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	out := make([]linkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, h.toResponse(link))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"links":  out,
		"limit":  limit,
		"offset": offset,
	})
}

type updateLinkRequest struct {
	OriginalURL *string    `json:"originalUrl,omitempty"`
	Title       *string    `json:"title,omitempty"`
	IsActive    *bool      `json:"isActive,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ClearExpiry bool       `json:"clearExpiry,omitempty"`
}

func (h *LinksHandler) updateLink(w http.ResponseWriter, r *http.Request, code string) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	var req updateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	link, err := h.shortener.Update(r.Context(), userID, code, service.UpdateParams{
		OriginalURL: req.OriginalURL,
		Title:       req.Title,
		IsActive:    req.IsActive,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
	})
	var validationErr *service.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.toResponse(link))
	case errors.As(err, &validationErr):
		writeError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrLinkNotFound):
		writeError(w, "Link not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, "Forbidden", http.StatusForbidden)
	default:
		h.log.Error("failed to update link", zap.String("short_code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *LinksHandler) deleteLink(w http.ResponseWriter, r *http.Request, code string) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	err := h.shortener.Delete(r.Context(), userID, code)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrLinkNotFound):
		writeError(w, "Link not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, "Forbidden", http.StatusForbidden)
	default:
		h.log.Error("failed to delete link", zap.String("short_code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *LinksHandler) getStats(w http.ResponseWriter, r *http.Request, code string) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	link, byDevice, err := h.shortener.Stats(r.Context(), userID, code)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"link":         h.toResponse(link),
			"totalClicks":  link.ClickCount,
			"deviceCounts": byDevice,
		})
	case errors.Is(err, repository.ErrLinkNotFound):
		writeError(w, "Link not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, "Forbidden", http.StatusForbidden)
	default:
		h.log.Error("failed to load stats", zap.String("short_code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
