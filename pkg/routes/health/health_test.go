package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(_ context.Context) error { return nil }

func serve(c *Checker, path string) *httptest.ResponseRecorder {
	e := echo.New()
	c.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		c := NewChecker(PingFunc(ok), "1.0.0")
		rec := serve(c, "/api/v1/health")

		require.Equal(t, http.StatusOK, rec.Code)
		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "1.0.0", status.Version)
		assert.Equal(t, "healthy", status.Checks["database"].Status)
	})

	t.Run("optional dependency down", func(t *testing.T) {
		c := NewChecker(PingFunc(ok), "1.0.0")
		c.AddCheck("redis", PingFunc(func(context.Context) error { return errors.New("connection refused") }))
		rec := serve(c, "/api/v1/health")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "connection refused", status.Checks["redis"].Message)
	})

	t.Run("no database", func(t *testing.T) {
		rec := serve(NewChecker(nil, "1.0.0"), "/api/v1/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestLiveAndReady(t *testing.T) {
	c := NewChecker(PingFunc(ok), "1.0.0")
	assert.Equal(t, http.StatusOK, serve(c, "/api/v1/health/live").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(c, "/api/v1/health/ready").Code)

	c.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(c, "/api/v1/health/ready").Code)
}
