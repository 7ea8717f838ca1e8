package handler

import (
	"house-treasury/internal/adapter/http/middleware"
	"house-treasury/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	TreasurySvc    ports.TreasuryService
	GameSvc        ports.GameService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	r.Use(middleware.AuditLog(deps.Logger))

	// Health check (deep: every registered dependency)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/challenge", rl("auth_challenge"), authHandler.Challenge)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	treasuryHandler := NewTreasuryHandler(deps.TreasurySvc, deps.ReportingSvc)
	gameHandler := NewGameHandler(deps.GameSvc)

	treasuries := v1.Group("/treasuries")
	{
		treasuries.GET("/:id", rl("reads"), treasuryHandler.Get)
		treasuries.GET("/:id/ledger", rl("reads"), treasuryHandler.ListLedger)
		treasuries.GET("/:id/stats", rl("reads"), treasuryHandler.GetStats)

		// --- JWT-authenticated routes ---
		treasuries.POST("", jwtAuth, rl("treasury_write"), treasuryHandler.Initialize)
		treasuries.POST("/:id/topup", jwtAuth, rl("treasury_write"), treasuryHandler.TopUp)
		treasuries.POST("/:id/withdraw", jwtAuth, rl("treasury_write"), treasuryHandler.Withdraw)
		treasuries.POST("/:id/claim-fees", jwtAuth, rl("treasury_write"), treasuryHandler.ClaimFees)
		treasuries.PUT("/:id/stake-bounds/min", jwtAuth, rl("treasury_write"), treasuryHandler.UpdateMinStake)
		treasuries.PUT("/:id/stake-bounds/max", jwtAuth, rl("treasury_write"), treasuryHandler.UpdateMaxStake)
		treasuries.POST("/:id/games", jwtAuth, rl("games_create"), gameHandler.CreateGame)
	}

	games := v1.Group("/games")
	{
		games.GET("/:id", rl("reads"), gameHandler.GetGame)
		games.POST("/:id/settle", jwtAuth, rl("games_settle"), gameHandler.SettleGame)
	}

	return r
}
