package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serve(r *Router, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ExactRoute(t *testing.T) {
	r := New()
	r.GET("/api/v1/runs", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("runs"))
	})

	rec := serve(r, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "runs", rec.Body.String())
}

func TestRouter_WildcardSegment(t *testing.T) {
	r := New()
	r.GET("/api/v1/runs/*/errors", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/runs/abc-123/errors").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/runs/abc-123/deep/errors").Code,
		"a wildcard segment spans exactly one path segment")
}

func TestRouter_TrailingWildcard(t *testing.T) {
	r := New()
	r.GET("/swagger/*", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/swagger/index.html").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/swagger/doc/swagger.json").Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := New()
	r.POST("/api/v1/runs", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodGet, "/api/v1/runs").Code)
}

func TestRouter_NotFound(t *testing.T) {
	r := New()
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/nope").Code)
}

func TestRouter_SpecificBeforeGenericWildcard(t *testing.T) {
	r := New()
	r.GET("/api/v1/runs/*/errors", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("errors"))
	})
	r.GET("/api/v1/runs/*", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("run"))
	})

	assert.Equal(t, "errors", serve(r, http.MethodGet, "/api/v1/runs/x/errors").Body.String())
	assert.Equal(t, "run", serve(r, http.MethodGet, "/api/v1/runs/x").Body.String())
}
