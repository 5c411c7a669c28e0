package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	err error
}

func (f *fakeDependency) Ping(_ context.Context) error { return f.err }

func (f *fakeDependency) VerifyConnectivity(_ context.Context) error { return f.err }

func performRequest(checker *Checker, path string) *httptest.ResponseRecorder {
	e := echo.New()
	checker.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthAllHealthy(t *testing.T) {
	checker := NewChecker(&fakeDependency{}, &fakeDependency{}, "1.0.0")

	rec := performRequest(checker, "/api/v1/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"version":"1.0.0"`)
}

func TestHealthCacheDown(t *testing.T) {
	checker := NewChecker(&fakeDependency{err: errors.New("connection refused")}, &fakeDependency{}, "1.0.0")

	rec := performRequest(checker, "/api/v1/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestLive(t *testing.T) {
	checker := NewChecker(nil, nil, "1.0.0")

	rec := performRequest(checker, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady(t *testing.T) {
	checker := NewChecker(nil, nil, "1.0.0")

	rec := performRequest(checker, "/api/v1/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	checker.SetReady(true)
	rec = performRequest(checker, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}
