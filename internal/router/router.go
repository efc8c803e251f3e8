package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/natalplan/auth-service/internal/audit"
	"github.com/natalplan/auth-service/internal/config"
	"github.com/natalplan/auth-service/internal/handler"    // import the handlers that implement business logic
	"github.com/natalplan/auth-service/internal/middleware" // import middleware for session auth, gates and rate limiting
	"github.com/natalplan/auth-service/internal/ratelimit"
)

// Deps carries the long-lived service objects the routes need. Everything is
// constructed once in main and passed by reference; no route reaches for
// global state.
type Deps struct {
	Cfg          config.Config
	RateLimits   config.RateLimitConfig
	Auth         *handler.AuthHandler
	TwoFA        *handler.TwoFactorHandler
	Limiter      *ratelimit.Limiter
	Events       *audit.Log
	Entitlements middleware.EntitlementChecker
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// This endpoint can be used by load balancers or monitoring systems to
	// verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Every route consumes a point from the broad global
// budget; authentication-sensitive routes additionally consume from the
// "auth" budget, and the highest-risk operations (2FA verification,
// password reset) from the "strict" one.
func RegisterAuth(e *echo.Echo, d Deps) {
	// Broad low-cost limiter in front of everything.
	e.Use(middleware.RateLimit(d.Limiter, d.RateLimits.Global, d.Events))

	authLimit := middleware.RateLimit(d.Limiter, d.RateLimits.Auth, d.Events)
	strictLimit := middleware.RateLimit(d.Limiter, d.RateLimits.Strict, d.Events)

	// Unauthenticated operations live under /v1/auth.
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register, authLimit)
	g.POST("/login", d.Auth.Login, authLimit)
	g.GET("/verify-email", d.Auth.VerifyEmail, authLimit)
	// The 2FA challenge and the reset endpoints are the prime brute-force
	// targets, so they sit behind the strict budget.
	g.POST("/2fa/verify", d.Auth.Verify2FA, strictLimit)
	g.POST("/password-reset/request", d.Auth.RequestPasswordReset, strictLimit)
	g.POST("/password-reset/confirm", d.Auth.ConfirmPasswordReset, strictLimit)
	// Refresh and logout operate purely on cookies.
	g.POST("/refresh", d.Auth.Refresh, authLimit)
	g.POST("/logout", d.Auth.Logout)

	// Routes below require a valid access token.  SessionAuth resolves the
	// identity before any gate or handler runs.
	auth := e.Group("/v1")
	auth.Use(middleware.SessionAuth(d.Cfg.JWTSecret))
	auth.GET("/me", d.Auth.Me)

	// Account profile is ownership-gated: the path id must match the caller.
	auth.GET("/accounts/:id", d.Auth.GetAccount, middleware.RequireOwner("id"))

	// Entitlement-gated sample surface for the paid tier.
	auth.GET("/premium/entitlement", d.Auth.Entitlement, middleware.RequireEntitlement(d.Entitlements))

	// Authenticated 2FA lifecycle management.
	tfa := auth.Group("/2fa", authLimit)
	tfa.POST("/setup", d.TwoFA.Setup)
	tfa.POST("/activate", d.TwoFA.Activate)
	tfa.POST("/disable", d.TwoFA.Disable)
	tfa.POST("/backup-codes", d.TwoFA.RegenerateBackupCodes)
}
