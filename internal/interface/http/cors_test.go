package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newCORSEngine(allowed []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(corsMiddleware(allowed))
	engine.OPTIONS("/*path", func(c *gin.Context) {})
	engine.GET("/api/v1/history", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func TestCORS_AllowList(t *testing.T) {
	engine := newCORSEngine([]string{"https://exoplanets.example.org/"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Origin", "https://exoplanets.example.org")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, "https://exoplanets.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", rec.Header().Get("Vary"))
	require.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	require.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), errorCodeHeader)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightAnyOrigin(t *testing.T) {
	engine := newCORSEngine(nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/classify", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type, Accept", rec.Header().Get("Access-Control-Allow-Headers"))
	require.Equal(t, corsMaxAge, rec.Header().Get("Access-Control-Max-Age"))
}
