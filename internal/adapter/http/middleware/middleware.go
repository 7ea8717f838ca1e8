package middleware

import (
	"net/http"
	"strings"
	"time"

	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/pkg/apperror"
	"house-treasury/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderRequestID carries the request identifier in both directions.
	HeaderRequestID = "X-Request-ID"

	// CtxCallerAddress holds the authenticated caller's domain.Address.
	CtxCallerAddress = "caller_address"
)

// CallerAddress returns the authenticated caller set by JWTAuth.
func CallerAddress(c *gin.Context) (domain.Address, bool) {
	v, ok := c.Get(CtxCallerAddress)
	if !ok {
		return "", false
	}
	addr, ok := v.(domain.Address)
	return addr, ok && !addr.IsZero()
}

// JWTAuth creates a middleware that validates bearer tokens and stores the
// caller's address in the context.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenStr == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("token rejected")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxCallerAddress, claims.Address)
		c.Next()
	}
}

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(response.CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if caller, ok := CallerAddress(c); ok {
			event = event.Str("caller", caller.String())
		}

		event.
			Str("request_id", response.RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.New(apperror.CodeInternal, "Internal server error", http.StatusInternalServerError))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Reads past the limit fail and the request is rejected by the binder.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
