package policies

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// Handler wires JSON endpoints for policy administration.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers policy routes on the provided router. Policies are
// always addressed through their feature.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{featureID}/policies", func(r chi.Router) {
		r.Get("/", h.listByFeature)
		r.Post("/", h.create)
		r.Delete("/", h.deleteByFeature)
		r.Get("/{policyID}", h.get)
		r.Put("/{policyID}", h.update)
		r.Delete("/{policyID}", h.delete)
	})
}

type policyRequest struct {
	Attribute string `json:"attribute" validate:"required"`
	Operator  string `json:"operator" validate:"required"`
	Value     string `json:"value" validate:"required"`
}

func (h *Handler) listByFeature(w http.ResponseWriter, r *http.Request) {
	featureID, err := pathID(r, "featureID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "feature id must be an integer")
		return
	}
	result, err := h.service.ListByFeature(r.Context(), featureID)
	if err != nil {
		h.logger.Error("list policies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"policies": result})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	policyID, err := pathID(r, "policyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "policy id must be an integer")
		return
	}
	policy, err := h.service.GetPolicy(r.Context(), policyID)
	if err != nil {
		h.respondErr(w, err, "get policy")
		return
	}
	httpx.JSON(w, http.StatusOK, policy)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	featureID, err := pathID(r, "featureID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "feature id must be an integer")
		return
	}
	in, ok := h.decodeInput(w, r, featureID)
	if !ok {
		return
	}
	policy, err := h.service.CreatePolicy(r.Context(), in)
	if err != nil {
		h.respondErr(w, err, "create policy")
		return
	}
	httpx.JSON(w, http.StatusCreated, policy)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	featureID, err := pathID(r, "featureID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "feature id must be an integer")
		return
	}
	policyID, err := pathID(r, "policyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "policy id must be an integer")
		return
	}
	in, ok := h.decodeInput(w, r, featureID)
	if !ok {
		return
	}
	policy, err := h.service.UpdatePolicy(r.Context(), policyID, in)
	if err != nil {
		h.respondErr(w, err, "update policy")
		return
	}
	httpx.JSON(w, http.StatusOK, policy)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	policyID, err := pathID(r, "policyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "policy id must be an integer")
		return
	}
	if err := h.service.DeletePolicy(r.Context(), policyID); err != nil {
		h.respondErr(w, err, "delete policy")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteByFeature(w http.ResponseWriter, r *http.Request) {
	featureID, err := pathID(r, "featureID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "feature id must be an integer")
		return
	}
	removed, err := h.service.DeleteByFeature(r.Context(), featureID)
	if err != nil {
		h.respondErr(w, err, "delete feature policies")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request, featureID int64) (Input, bool) {
	var req policyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return Input{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Input{}, false
	}
	return Input{
		FeatureID: featureID,
		Attribute: req.Attribute,
		Operator:  req.Operator,
		Value:     req.Value,
	}, true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "policy not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
