package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/lifecycle/lifecycletest"
	"github.com/civicpulse/complaints-api/models"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", seen)
}

func TestRequireBearer(t *testing.T) {
	verifier := lifecycletest.Verifier{"good": {SubjectID: "u1", Username: "asha", Role: models.RoleCitizen}}
	var got lifecycle.Identity
	h := RequireBearer(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, header := range []string{"", "Bearer bad", "Basic good"} {
		req := httptest.NewRequest("POST", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, header)
	}

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "u1", got.SubjectID)
}

func TestIdentityFromEmptyContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	rr := httptest.NewRecorder()
	TimeoutMiddleware(10*time.Millisecond)(slow).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "Request timeout")
}

func TestMetricsMiddleware(t *testing.T) {
	mc := NewMetricsCollector()
	h := MetricsMiddleware(mc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/complaints/507f1f77bcf86cd799439011" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	for _, path := range []string{
		"/api/v1/complaints/507f1f77bcf86cd799439011",
		"/api/v1/complaints/507f1f77bcf86cd799439012",
		"/health",
	} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("PATCH", path, nil))
	}

	routes := mc.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "/api/v1/complaints/{id}", routes[0].Path)
	assert.Equal(t, int64(2), routes[0].Count)
	assert.Equal(t, int64(1), routes[0].ErrorCount)
}

func TestNormalizeRoutePath(t *testing.T) {
	assert.Equal(t, "/api/v1/complaints/{id}", normalizeRoutePath("/api/v1/complaints/507f1f77bcf86cd799439011"))
	assert.Equal(t, "/api/v1/users/{id}/x", normalizeRoutePath("/api/v1/users/507f1f77bcf86cd799439011/x"))
	assert.Equal(t, "/api/v1/complaints", normalizeRoutePath("/api/v1/complaints/"))
}
