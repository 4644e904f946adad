package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/rclong1221/sploot-media-clustering/internal/httpapi"
)

func newTestEngine(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(httpapi.AuthMiddleware(token, nil))
	engine.GET("/internal/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	engine := newTestEngine("s3cr3t")
	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid internal token"}`, rec.Body.String())
}

func TestAuthMiddleware_RejectsWrongToken(t *testing.T) {
	engine := newTestEngine("s3cr3t")
	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set(httpapi.TokenHeader, "wrong")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid internal token"}`, rec.Body.String())
}

func TestAuthMiddleware_AcceptsCorrectToken(t *testing.T) {
	engine := newTestEngine("s3cr3t")
	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set(httpapi.TokenHeader, "s3cr3t")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
