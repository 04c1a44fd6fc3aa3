package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// Handler exposes read-only audit timeline endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/access-logs", h.accessLogs)
	r.Get("/violations", h.violations)
}

func (h *Handler) accessLogs(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.AccessLogs(r.Context(), parseFilters(r))
	if err != nil {
		h.logger.Error("audit access logs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) violations(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Violations(r.Context(), parseFilters(r))
	if err != nil {
		h.logger.Error("audit violations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseFilters(r *http.Request) TimelineFilters {
	q := r.URL.Query()
	filters := TimelineFilters{Decision: q.Get("decision")}
	if v, err := strconv.ParseInt(q.Get("user_id"), 10, 64); err == nil {
		filters.UserID = v
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		filters.PageSize = v
	}
	if v, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filters.From = v
	}
	if v, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filters.To = v
	}
	return filters
}
