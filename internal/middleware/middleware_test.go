package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthDisabledWithoutKeys(t *testing.T) {
	h := NewAuthMiddleware(AuthConfig{})(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthAcceptsKeyLocations(t *testing.T) {
	h := NewAuthMiddleware(AuthConfig{
		APIKeys:     ParseAPIKeys(" first , second ,"),
		PublicPaths: []string{"/api/v1/health"},
	})(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{"missing key", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
		}, http.StatusUnauthorized},
		{"wrong key", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
			r.Header.Set("X-API-Key", "third")
			return r
		}, http.StatusUnauthorized},
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
			r.Header.Set("X-API-Key", "first")
			return r
		}, http.StatusOK},
		{"bearer", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
			r.Header.Set("Authorization", "Bearer second")
			return r
		}, http.StatusOK},
		{"query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/inventory/stream?api_key=first", nil)
		}, http.StatusOK},
		{"public path", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		}, http.StatusOK},
		{"preflight", func() *http.Request {
			return httptest.NewRequest(http.MethodOptions, "/api/v1/inventory", nil)
		}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 500))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRecoveryRendersInternalError(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLoggingCapturesStatus(t *testing.T) {
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
