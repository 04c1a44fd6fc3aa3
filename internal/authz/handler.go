package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// DecisionRecorder counts decisions by outcome. Satisfied by
// observability.Metrics; declared here so the engine package stays free of
// metrics plumbing.
type DecisionRecorder interface {
	RecordDecision(outcome Outcome)
}

// Handler exposes the evaluation surface: the full decision endpoint used
// by gateways and the policy-only checks used by diagnostic tooling.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	metrics  DecisionRecorder
	validate *validator.Validate
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, engine *Engine, metrics DecisionRecorder) *Handler {
	return &Handler{logger: logger, engine: engine, metrics: metrics, validate: validator.New()}
}

// MountRoutes registers evaluation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/evaluate", h.evaluate)
	r.Get("/policies/check", h.checkPolicies)
	r.Get("/policies/check/details", h.checkPoliciesDetails)
}

type evaluateRequest struct {
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	FeatureID int64  `json:"feature_id" validate:"required,gt=0"`
	Action    string `json:"action" validate:"required"`
	Path      string `json:"path"`
	Method    string `json:"method"`
}

type failedPolicyResponse struct {
	PolicyID  int64  `json:"policy_id"`
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
	Actual    string `json:"actual"`
	Reason    string `json:"reason"`
}

type decisionResponse struct {
	Allowed        bool                   `json:"allowed"`
	Outcome        Outcome                `json:"outcome"`
	Reason         string                 `json:"reason"`
	FailedPolicies []failedPolicyResponse `json:"failed_policies,omitempty"`
	AuditError     string                 `json:"audit_error,omitempty"`
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	action, err := ParseAction(req.Action)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	meta := RequestMeta{Path: req.Path, Method: req.Method}
	if meta.Path == "" {
		meta.Path = r.URL.Path
	}
	if meta.Method == "" {
		meta.Method = r.Method
	}

	decision, err := h.engine.Evaluate(r.Context(), req.UserID, req.FeatureID, action, meta)
	if h.metrics != nil {
		h.metrics.RecordDecision(decision.Outcome)
	}

	resp := decisionResponse{
		Allowed: decision.Allowed,
		Outcome: decision.Outcome,
		Reason:  decision.Reason,
	}
	for _, failed := range decision.Failed {
		resp.FailedPolicies = append(resp.FailedPolicies, failedPolicyResponse{
			PolicyID:  failed.Policy.ID,
			Attribute: string(failed.Policy.Attribute),
			Operator:  string(failed.Policy.Operator),
			Value:     failed.Policy.Value,
			Actual:    failed.Actual,
			Reason:    failed.Reason,
		})
	}
	if err != nil {
		// The decision stands; the error is surfaced, not hidden.
		h.logger.Warn("evaluate completed with error", slog.Any("error", err))
		var auditErr *AuditWriteError
		if errors.As(err, &auditErr) {
			resp.AuditError = "audit trail incomplete"
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) checkPolicies(w http.ResponseWriter, r *http.Request) {
	userID, featureID, ok := h.checkParams(w, r)
	if !ok {
		return
	}
	valid, err := h.engine.EvaluatePoliciesOnly(r.Context(), userID, featureID)
	if err != nil {
		h.respondCheckErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"valid": valid})
}

func (h *Handler) checkPoliciesDetails(w http.ResponseWriter, r *http.Request) {
	userID, featureID, ok := h.checkParams(w, r)
	if !ok {
		return
	}
	result, err := h.engine.EvaluatePoliciesWithDetails(r.Context(), userID, featureID)
	if err != nil {
		h.respondCheckErr(w, err)
		return
	}
	resp := map[string]any{"valid": result.Valid}
	var failed []failedPolicyResponse
	for _, f := range result.Failed {
		failed = append(failed, failedPolicyResponse{
			PolicyID:  f.Policy.ID,
			Attribute: string(f.Policy.Attribute),
			Operator:  string(f.Policy.Operator),
			Value:     f.Policy.Value,
			Actual:    f.Actual,
			Reason:    f.Reason,
		})
	}
	resp["failed_policies"] = failed
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) checkParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	q := r.URL.Query()
	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id must be a positive integer")
		return 0, 0, false
	}
	featureID, err := strconv.ParseInt(q.Get("feature_id"), 10, 64)
	if err != nil || featureID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "feature_id must be a positive integer")
		return 0, 0, false
	}
	return userID, featureID, true
}

func (h *Handler) respondCheckErr(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUserNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
		return
	}
	h.logger.Error("policy check", slog.Any("error", err))
	httpx.RespondError(w, err)
}
