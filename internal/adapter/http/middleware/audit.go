package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// auditActions maps write routes to the treasury action they perform.
var auditActions = map[string]string{
	http.MethodPost + " /api/v1/auth/login":                     "LOGIN",
	http.MethodPost + " /api/v1/treasuries":                     "INITIALIZE",
	http.MethodPost + " /api/v1/treasuries/:id/topup":           "TOP_UP",
	http.MethodPost + " /api/v1/treasuries/:id/withdraw":        "WITHDRAW",
	http.MethodPost + " /api/v1/treasuries/:id/claim-fees":      "CLAIM_FEES",
	http.MethodPut + " /api/v1/treasuries/:id/stake-bounds/min": "UPDATE_MIN_STAKE",
	http.MethodPut + " /api/v1/treasuries/:id/stake-bounds/max": "UPDATE_MAX_STAKE",
	http.MethodPost + " /api/v1/treasuries/:id/games":           "CREATE_GAME",
	http.MethodPost + " /api/v1/games/:id/settle":               "SETTLE_GAME",
}

// AuditLog emits one audit event for every successful write.
func AuditLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		action := auditAction(c.Request.Method, c.FullPath())
		if action == "" {
			return
		}

		event := log.Info().
			Str("audit_action", action).
			Str("resource_id", c.Param("id")).
			Str("client_ip", c.ClientIP()).
			Int("status", status)
		if caller, ok := CallerAddress(c); ok {
			event = event.Str("caller", caller.String())
		}
		event.Msg("audit")
	}
}

func auditAction(method, route string) string {
	return auditActions[method+" "+route]
}
