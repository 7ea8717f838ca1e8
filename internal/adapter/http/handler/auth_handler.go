package handler

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"strings"

	"house-treasury/internal/adapter/http/dto"
	"house-treasury/internal/core/domain"
	"house-treasury/internal/core/ports"
	"house-treasury/pkg/apperror"
	"house-treasury/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Challenge handles POST /api/v1/auth/challenge.
func (h *AuthHandler) Challenge(c *gin.Context) {
	var req dto.ChallengeRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	address, err := domain.ParseAddress(req.Address)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	challenge, err := h.authSvc.Challenge(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ChallengeResponse{
		Address:   challenge.Address.String(),
		Nonce:     challenge.Nonce,
		Message:   challenge.Message,
		ExpiresAt: challenge.ExpiresAt.Unix(),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	pub, err := decodeHex(req.PublicKey)
	if err != nil {
		response.Error(c, apperror.Validation("public_key must be hex encoded"))
		return
	}
	sig, err := decodeHex(req.Signature)
	if err != nil {
		response.Error(c, apperror.Validation("signature must be hex encoded"))
		return
	}

	token, expiry, err := h.authSvc.Login(c.Request.Context(), ports.LoginRequest{
		PublicKey: pub,
		Nonce:     req.Nonce,
		Signature: sig,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:   token,
		Address: domain.AddressFromPublicKey(ed25519.PublicKey(pub)).String(),
		Expiry:  expiry.Unix(),
	})
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
}

// HealthCheck handles GET /health, pinging every dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
