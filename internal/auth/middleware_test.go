package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-authz/aegis/internal/shared"
)

func TestRequireAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	mw := Middleware{APIKeyHash: string(hash)}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name   string
		key    string
		status int
	}{
		{"valid key", "s3cret", http.StatusOK},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/roles", nil)
			if tc.key != "" {
				req.Header.Set("X-Api-Key", tc.key)
			}
			rec := httptest.NewRecorder()
			mw.RequireAPIKey(next).ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireAPIKeyWithoutConfiguredHashRejects(t *testing.T) {
	mw := Middleware{}
	req := httptest.NewRequest(http.MethodGet, "/v1/roles", nil)
	req.Header.Set("X-Api-Key", "anything")
	rec := httptest.NewRecorder()
	mw.RequireAPIKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithPrincipal(t *testing.T) {
	mw := Middleware{}
	var got shared.Principal
	var present bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, present = shared.PrincipalFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Auth-User", "42")
	mw.WithPrincipal(next).ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, present)
	assert.Equal(t, int64(42), got.UserID)

	present = false
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Auth-User", "not-a-number")
	mw.WithPrincipal(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, present)
}
