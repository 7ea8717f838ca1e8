package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func auditRouter(buf *strings.Builder, status int) *gin.Engine {
	router := gin.New()
	router.Use(AuditLog(zerolog.New(buf)))
	handler := func(c *gin.Context) {
		c.Set(CtxCallerAddress, alice)
		c.Status(status)
	}
	router.POST("/api/v1/games/:id/settle", handler)
	router.GET("/api/v1/games/:id", handler)
	router.POST("/api/v1/unmapped", handler)
	return router
}

func TestAuditLog_SuccessfulWrite(t *testing.T) {
	var buf strings.Builder
	router := auditRouter(&buf, http.StatusOK)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/games/g-1/settle", nil))

	out := buf.String()
	assert.Contains(t, out, `"audit_action":"SETTLE_GAME"`)
	assert.Contains(t, out, `"resource_id":"g-1"`)
	assert.Contains(t, out, `"caller":"`+alice.String()+`"`)
}

func TestAuditLog_SkipsReadsFailuresAndUnmapped(t *testing.T) {
	var buf strings.Builder
	router := auditRouter(&buf, http.StatusOK)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/games/g-1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/unmapped", nil))
	assert.Empty(t, buf.String())

	failing := auditRouter(&buf, http.StatusConflict)
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/games/g-1/settle", nil))
	assert.Empty(t, buf.String())
}

func TestAuditAction(t *testing.T) {
	tests := []struct {
		method, route, want string
	}{
		{http.MethodPost, "/api/v1/treasuries", "INITIALIZE"},
		{http.MethodPost, "/api/v1/treasuries/:id/withdraw", "WITHDRAW"},
		{http.MethodPut, "/api/v1/treasuries/:id/stake-bounds/max", "UPDATE_MAX_STAKE"},
		{http.MethodGet, "/api/v1/treasuries/:id", ""},
		{http.MethodPost, "/api/v1/auth/challenge", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, auditAction(tt.method, tt.route), tt.method+" "+tt.route)
	}
}
