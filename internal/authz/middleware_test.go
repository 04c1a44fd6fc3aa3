package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-authz/aegis/internal/shared"
)

type stubResolver struct {
	ids map[string]int64
	err error
}

func (s *stubResolver) FeatureIDByName(ctx context.Context, name string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	id, ok := s.ids[name]
	if !ok {
		return 0, ErrFeatureNotFound
	}
	return id, nil
}

func guardedHandler(m Middleware, feature string, action Action) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return m.RequireFeature(feature, action)(ok)
}

func requestAs(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	ctx := shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID})
	return req.WithContext(ctx)
}

func TestRequireFeatureAllows(t *testing.T) {
	store := financeStore()
	sink := &recordingSink{}
	metrics := &countingRecorder{}
	m := Middleware{
		Engine:   newTestEngine(store, sink),
		Features: &stubResolver{ids: map[string]int64{"reports": 10}},
		Metrics:  metrics,
	}

	rec := httptest.NewRecorder()
	guardedHandler(m, "reports", ActionRead).ServeHTTP(rec, requestAs(1))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []Outcome{OutcomeAllowed}, metrics.outcomes)
	require.Len(t, sink.logs, 1)
	assert.Equal(t, "/reports", sink.logs[0].Path)
	assert.Equal(t, http.MethodGet, sink.logs[0].Method)
}

func TestRequireFeatureDeniesWithoutGrant(t *testing.T) {
	store := financeStore()
	m := Middleware{
		Engine:   newTestEngine(store, &recordingSink{}),
		Features: &stubResolver{ids: map[string]int64{"reports": 10}},
	}

	rec := httptest.NewRecorder()
	guardedHandler(m, "reports", ActionDelete).ServeHTTP(rec, requestAs(1))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "access denied")
}

func TestRequireFeatureDeniesWithoutPrincipal(t *testing.T) {
	m := Middleware{
		Engine:   newTestEngine(financeStore(), &recordingSink{}),
		Features: &stubResolver{ids: map[string]int64{"reports": 10}},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	guardedHandler(m, "reports", ActionRead).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireFeatureDeniesOnResolverFailure(t *testing.T) {
	store := financeStore()
	sink := &recordingSink{}
	m := Middleware{
		Engine:   newTestEngine(store, sink),
		Features: &stubResolver{err: errors.New("connection refused")},
	}

	rec := httptest.NewRecorder()
	guardedHandler(m, "reports", ActionRead).ServeHTTP(rec, requestAs(1))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, sink.logs, "no evaluation happens when the feature cannot be resolved")
}

func TestRequireFeatureDeniesUnknownUser(t *testing.T) {
	store := financeStore()
	sink := &recordingSink{}
	m := Middleware{
		Engine:   newTestEngine(store, sink),
		Features: &stubResolver{ids: map[string]int64{"reports": 10}},
	}

	rec := httptest.NewRecorder()
	guardedHandler(m, "reports", ActionRead).ServeHTTP(rec, requestAs(99))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Len(t, sink.logs, 1)
	assert.Equal(t, LogDecisionDeny, sink.logs[0].Decision)
}
