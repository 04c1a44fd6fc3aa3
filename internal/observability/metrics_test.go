package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aegis-authz/aegis/internal/authz"
)

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	m := NewMetrics()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "aegis_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
	if !strings.Contains(body, `code="418"`) {
		t.Fatalf("expected recorded status code in metrics output")
	}
}

func TestRecordDecision(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision(authz.OutcomeAllowed)
	m.RecordDecision(authz.OutcomeDeniedByABAC)
	m.RecordDecision(authz.OutcomeDeniedByABAC)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `aegis_authz_decisions_total{outcome="denied_abac"} 2`) {
		t.Fatalf("expected denied_abac counter of 2, got:\n%s", body)
	}
	if !strings.Contains(body, `aegis_authz_decisions_total{outcome="allowed"} 1`) {
		t.Fatalf("expected allowed counter of 1")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordDecision(authz.OutcomeAllowed)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rec.Code)
	}
}
