package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
	"github.com/aegis-authz/aegis/internal/shared"
)

// FeatureResolver maps a feature name to its identifier. Satisfied by the
// features service.
type FeatureResolver interface {
	FeatureIDByName(ctx context.Context, name string) (int64, error)
}

// Middleware guards routes behind a full RBAC and policy evaluation.
type Middleware struct {
	Engine   *Engine
	Features FeatureResolver
	Metrics  DecisionRecorder
	Logger   *slog.Logger
}

// RequireFeature denies the request unless the authenticated principal is
// allowed to perform action on the named feature. Every failure mode is a
// 403 with a generic detail; the audit trail carries the specifics.
func (m Middleware) RequireFeature(feature string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "access denied")
				return
			}

			featureID, err := m.Features.FeatureIDByName(r.Context(), feature)
			if err != nil {
				m.logger().Warn("feature resolve failed",
					slog.String("feature", feature), slog.Any("error", err))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "access denied")
				return
			}

			decision, err := m.Engine.Evaluate(r.Context(), principal.UserID, featureID, action, RequestMeta{
				Path:   r.URL.Path,
				Method: r.Method,
			})
			if err != nil {
				m.logger().Warn("evaluation completed with error",
					slog.String("feature", feature), slog.Any("error", err))
			}
			if m.Metrics != nil {
				m.Metrics.RecordDecision(decision.Outcome)
			}
			if !decision.Allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
