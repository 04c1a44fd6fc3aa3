package features

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// Handler wires JSON endpoints for the feature registry.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers feature routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{featureID}", h.get)
	r.Put("/{featureID}", h.update)
	r.Delete("/{featureID}", h.delete)
}

type featureRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListFeatures(r.Context())
	if err != nil {
		h.logger.Error("list features", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"features": result})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := featureID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "feature id must be an integer")
		return
	}
	feature, err := h.service.GetFeature(r.Context(), id)
	if err != nil {
		h.respondErr(w, err, "get feature")
		return
	}
	httpx.JSON(w, http.StatusOK, feature)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req featureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	feature, err := h.service.CreateFeature(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondErr(w, err, "create feature")
		return
	}
	httpx.JSON(w, http.StatusCreated, feature)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := featureID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "feature id must be an integer")
		return
	}
	var req featureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	feature, err := h.service.UpdateFeature(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.respondErr(w, err, "update feature")
		return
	}
	httpx.JSON(w, http.StatusOK, feature)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := featureID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "feature id must be an integer")
		return
	}
	if err := h.service.DeleteFeature(r.Context(), id); err != nil {
		h.respondErr(w, err, "delete feature")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "feature not found")
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "feature name already exists")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func featureID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "featureID"), 10, 64)
}
