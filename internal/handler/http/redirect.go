package http

import (
	"net/http"
	"strings"

	"Lynx-Backend/internal/service"

	"go.uber.org/zap"
)

// RedirectHandler serves the public redirect path.
type RedirectHandler struct {
	resolver *service.Resolver
	log      *zap.Logger
}

func NewRedirectHandler(resolver *service.Resolver, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{resolver: resolver, log: log}
}

// HandleRedirect resolves GET /{shortCode}. Short codes are matched exactly
// and case sensitively.
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/")
	if code == "" || strings.Contains(code, "/") {
		http.NotFound(w, r)
		return
	}

	meta := extractRequestMeta(r)
	resolution, err := h.resolver.Resolve(r.Context(), code, meta)
	if err != nil {
		h.log.Error("failed to resolve short code", zap.String("short_code", code), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	switch resolution.Outcome {
	case service.OutcomeValid:
		http.Redirect(w, r, resolution.Link.OriginalURL, http.StatusFound)
	case service.OutcomeExpired:
		servePage(w, http.StatusGone, "Link expired", "This short link has expired.")
	case service.OutcomeInactive:
		servePage(w, http.StatusGone, "Link unavailable", "This short link is no longer available.")
	default:
		servePage(w, http.StatusNotFound, "Not found", "This short link does not exist.")
	}
}

func servePage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("<!DOCTYPE html><html><head><title>" + title + "</title></head><body><h1>" + title + "</h1><p>" + message + "</p></body></html>"))
}

func extractRequestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: extractIPAddress(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		Country:   r.Header.Get("CF-IPCountry"),
		City:      r.Header.Get("CF-IPCity"),
	}
}

// extractIPAddress prefers proxy headers over the socket peer address.
func extractIPAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, found := strings.Cut(r.RemoteAddr, ":"); found {
		return host
	}
	return r.RemoteAddr
}
