package handler

import (
	"house-treasury/internal/adapter/http/middleware"
	"house-treasury/internal/core/domain"
	"house-treasury/pkg/apperror"
	"house-treasury/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pathID parses the :id route parameter. On failure it writes the error
// response and reports false.
func pathID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+entity+" id"))
		return uuid.Nil, false
	}
	return id, true
}

// caller returns the authenticated caller. On failure it writes the error
// response and reports false.
func caller(c *gin.Context) (domain.Address, bool) {
	addr, ok := middleware.CallerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return "", false
	}
	return addr, true
}

// bindJSON binds the request body. On failure it writes the
// error response and reports false.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}
